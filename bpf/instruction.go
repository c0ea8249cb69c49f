// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"encoding/binary"
)

// WordSize is the size in bytes of one encoded instruction slot.
const WordSize = 8

// Operand is the addressing form of a classic BPF operand.
// eBPF instructions leave it as OPERAND_NONE.
//
//go:generate go tool stringer -linecomment -type=Operand
type Operand int

const (
	OPERAND_NONE = Operand(iota) // none
	OPERAND_K                    // #k
	OPERAND_ABS                  // [k]
	OPERAND_IND                  // [x+k]
	OPERAND_MEM                  // M[k]
	OPERAND_MSH                  // 4*([k]&0xf)
	OPERAND_LEN                  // len
	OPERAND_A                    // a
	OPERAND_X                    // x
)

// Instruction is a fully resolved instruction, ready for encoding.
type Instruction struct {
	Opname string   // Mnemonic, lower case.
	LineNo int      // Source line, 1 based.
	Source Register // Source register, REG_NONE if unused.
	Dest   Register // Destination register, REG_NONE if unused.
	Offset int      // Memory displacement or eBPF jump offset.
	Imm    Imm      // Immediate operand.

	// Classic BPF only.
	Operand   Operand
	JumpTrue  int // Offset when the condition holds.
	JumpFalse int // Offset when the condition fails.
}

// Word is one decoded eBPF instruction slot.
type Word struct {
	Opcode uint8
	Dst    uint8
	Src    uint8
	Offset int16
	Imm    int32
}

// Append packs the word onto buf.
func (w Word) Append(buf []byte) []byte {
	buf = append(buf, w.Opcode, (w.Src<<4)|(w.Dst&0xf))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(w.Offset))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(w.Imm))
	return buf
}

// UnpackWord decodes the first slot of buf, which must hold at least
// WordSize bytes.
func UnpackWord(buf []byte) (w Word) {
	w = Word{
		Opcode: buf[0],
		Dst:    buf[1] & 0xf,
		Src:    buf[1] >> 4,
		Offset: int16(binary.LittleEndian.Uint16(buf[2:4])),
		Imm:    int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
	return
}

// ClassicWord is one classic BPF instruction, packed big endian.
type ClassicWord struct {
	Code uint16
	Jt   uint8
	Jf   uint8
	K    uint32
}

// Append packs the word onto buf.
func (w ClassicWord) Append(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, w.Code)
	buf = append(buf, w.Jt, w.Jf)
	buf = binary.BigEndian.AppendUint32(buf, w.K)
	return buf
}
