// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"fmt"
)

// Disassemble decodes count slots of code, starting at byte offset. The
// second slot of an lddw renders as an empty string, so the result always
// has one entry per slot.
func Disassemble(code []byte, offset int, count int) (lines []string, err error) {
	if count < 0 || offset < 0 || offset > len(code) {
		err = &ErrDecode{Offset: offset, Err: ErrTruncated}
		return
	}

	lines = make([]string, 0, count)
	for n := range count {
		var text string
		text, err = DisassembleInstruction(code, offset+n*WordSize)
		if err != nil {
			lines = nil
			return
		}
		lines = append(lines, text)
	}
	return
}

// DisassembleAll decodes every slot of code.
func DisassembleAll(code []byte) (lines []string, err error) {
	count := (len(code) + WordSize - 1) / WordSize
	return Disassemble(code, 0, count)
}

// DisassembleInstruction decodes the slot at byte offset.
func DisassembleInstruction(code []byte, offset int) (text string, err error) {
	if offset < 0 || offset+WordSize > len(code) {
		err = &ErrDecode{Offset: offset, Err: ErrTruncated}
		return
	}

	w := UnpackWord(code[offset:])
	defer func() {
		if err != nil {
			err = &ErrDecode{Offset: offset, Opcode: w.Opcode, Err: err}
		}
	}()

	switch ClassOf(w.Opcode) {
	case CLS_ALU, CLS_ALU64:
		text, err = disassembleAlu(w)
	case CLS_JMP, CLS_JMP32:
		text, err = disassembleJump(w)
	case CLS_LD:
		if w.Opcode == 0 {
			// Upper half of an lddw.
			return
		}
		if w.Opcode == uint8(CLS_LD)|uint8(SIZE_DW)|uint8(MODE_IMM) {
			if offset+2*WordSize > len(code) {
				err = ErrTruncated
				return
			}
			high := UnpackWord(code[offset+WordSize:])
			value := uint64(uint32(w.Imm)) | uint64(uint32(high.Imm))<<32
			text = fmt.Sprintf("lddw %v, %d", reg(w.Dst), value)
			return
		}
		text, err = disassemblePacket(w)
	default:
		text, err = disassembleMemory(w)
	}

	return
}

func reg(num uint8) string {
	return fmt.Sprintf("r%d", num)
}

// relative renders a [base+off] memory operand.
func relative(base uint8, off int16) string {
	switch {
	case off == 0:
		return fmt.Sprintf("[%v]", reg(base))
	case off > 0:
		return fmt.Sprintf("[%v+%d]", reg(base), off)
	default:
		return fmt.Sprintf("[%v%d]", reg(base), off)
	}
}

func disassembleAlu(w Word) (text string, err error) {
	cls := ClassOf(w.Opcode)
	op := AluOpOf(w.Opcode)

	if op == ALU_END {
		if cls != CLS_ALU {
			err = ErrUnknownOpcode
			return
		}
		switch w.Imm {
		case 16, 32, 64:
		default:
			err = ErrImmediateRange
			return
		}
		order := "le"
		if SourceOf(w.Opcode) == ENDIAN_BE {
			order = "be"
		}
		text = fmt.Sprintf("%v%d %v", order, w.Imm, reg(w.Dst))
		return
	}

	name := op.String()
	if len(name) == 0 {
		err = ErrUnknownOpcode
		return
	}
	if cls == CLS_ALU {
		name += "32"
	}

	switch {
	case op == ALU_NEG:
		text = fmt.Sprintf("%v %v", name, reg(w.Dst))
	case SourceOf(w.Opcode) == SRC_IMM:
		text = fmt.Sprintf("%v %v, %d", name, reg(w.Dst), w.Imm)
	default:
		text = fmt.Sprintf("%v %v, %v", name, reg(w.Dst), reg(w.Src))
	}
	return
}

func disassembleJump(w Word) (text string, err error) {
	cls := ClassOf(w.Opcode)
	op := JmpOpOf(w.Opcode)

	name := op.String()
	if len(name) == 0 {
		err = ErrUnknownOpcode
		return
	}

	switch op {
	case JMP_EXIT, JMP_CALL, JMP_JA:
		if cls == CLS_JMP32 {
			err = ErrUnknownOpcode
			return
		}
	default:
		if cls == CLS_JMP32 {
			name += "32"
		}
	}

	switch {
	case op == JMP_EXIT:
		text = name
	case op == JMP_CALL:
		helper, ok := HelperName(int64(w.Imm))
		if ok {
			text = fmt.Sprintf("%v %v", name, helper)
		} else {
			text = fmt.Sprintf("%v %d", name, w.Imm)
		}
	case op == JMP_JA:
		text = fmt.Sprintf("%v %+d", name, w.Offset)
	case SourceOf(w.Opcode) == SRC_IMM:
		text = fmt.Sprintf("%v %v, %d, %+d", name, reg(w.Dst), w.Imm, w.Offset)
	default:
		text = fmt.Sprintf("%v %v, %v, %+d", name, reg(w.Dst), reg(w.Src), w.Offset)
	}
	return
}

func disassemblePacket(w Word) (text string, err error) {
	size := SizeOf(w.Opcode)
	switch ModeOf(w.Opcode) {
	case MODE_ABS:
		text = fmt.Sprintf("ldabs%v %d", size, w.Imm)
	case MODE_IND:
		text = fmt.Sprintf("ldind%v %v, %d", size, reg(w.Src), w.Imm)
	default:
		err = ErrUnknownOpcode
	}
	return
}

func disassembleMemory(w Word) (text string, err error) {
	if ModeOf(w.Opcode) != MODE_MEM {
		err = ErrUnknownOpcode
		return
	}

	cls := ClassOf(w.Opcode)
	name := cls.String() + SizeOf(w.Opcode).String()

	switch cls {
	case CLS_LDX:
		text = fmt.Sprintf("%v %v, %v", name, reg(w.Dst), relative(w.Src, w.Offset))
	case CLS_ST:
		text = fmt.Sprintf("%v %v, %d", name, relative(w.Dst, w.Offset), w.Imm)
	case CLS_STX:
		text = fmt.Sprintf("%v %v, %v", name, relative(w.Dst, w.Offset), reg(w.Src))
	default:
		err = ErrUnknownOpcode
	}
	return
}
