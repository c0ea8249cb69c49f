// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"math"
	"strings"
)

// Encode packs an eBPF instruction into one slot, or two for lddw.
func Encode(inst Instruction) (code []byte, err error) {
	defer func() {
		if err != nil {
			code = nil
			err = &ErrInstruction{LineNo: inst.LineNo, Opname: inst.Opname, Err: err}
		}
	}()

	mn, ok := LookupMnemonic(inst.Opname)
	if !ok {
		err = ErrMnemonic(inst.Opname)
		return
	}

	if inst.Offset < math.MinInt16 || inst.Offset > math.MaxInt16 {
		err = ErrOffsetRange
		return
	}

	var words []Word
	switch mn.Family {
	case FAMILY_ALU, FAMILY_NEG:
		words, err = encodeAlu(inst, mn, mn.Class)
	case FAMILY_ENDIAN:
		words, err = encodeEndian(inst, mn)
	case FAMILY_LDDW:
		words, err = encodeLddw(inst)
	case FAMILY_LOADX:
		words, err = encodeLoadX(inst, mn)
	case FAMILY_STORE:
		words, err = encodeStore(inst, mn)
	case FAMILY_STOREX:
		words, err = encodeStoreX(inst, mn)
	case FAMILY_LDABS, FAMILY_LDIND:
		words, err = encodePacket(inst, mn)
	case FAMILY_JA, FAMILY_JUMP, FAMILY_CALL, FAMILY_EXIT:
		words, err = encodeJump(inst, mn)
	default:
		err = ErrMnemonic(inst.Opname)
	}
	if err != nil {
		return
	}

	code = make([]byte, 0, len(words)*WordSize)
	for _, w := range words {
		code = w.Append(code)
	}

	return
}

// word builds the common single slot layout.
func word(opcode uint8, inst Instruction) Word {
	return Word{
		Opcode: opcode,
		Dst:    inst.Dest.Num(),
		Src:    inst.Source.Num(),
		Offset: int16(inst.Offset),
		Imm:    int32(inst.Imm.Low32()),
	}
}

// sourceOrImm checks the register-or-immediate operand pair and returns
// the matching source bit.
func sourceOrImm(inst Instruction) (src Source, err error) {
	if inst.Source != REG_NONE {
		if !inst.Imm.IsZero() {
			err = ErrImmediateNonZero
			return
		}
		src = SRC_REG
		return
	}
	if !inst.Imm.Fits32() {
		err = ErrImmediateRange
		return
	}
	src = SRC_IMM
	return
}

// encodeAlu emits an ALU instruction in class cls. The mnemonic's '32'
// suffix must agree with cls.
func encodeAlu(inst Instruction, mn Mnemonic, cls Class) (words []Word, err error) {
	if strings.HasSuffix(mn.Name, "32") != (cls == CLS_ALU) {
		err = ErrClassMismatch
		return
	}
	if inst.Offset != 0 {
		err = ErrOffsetNonZero
		return
	}

	var src Source
	if mn.Family == FAMILY_NEG {
		switch {
		case inst.Source != REG_NONE:
			err = ErrSourceNotAllowed
		case !inst.Imm.IsZero():
			err = ErrImmediateNonZero
		}
	} else {
		src, err = sourceOrImm(inst)
	}
	if err != nil {
		return
	}

	words = []Word{word(uint8(cls)|uint8(src)|mn.Op, inst)}
	return
}

func encodeEndian(inst Instruction, mn Mnemonic) (words []Word, err error) {
	switch {
	case inst.Source != REG_NONE:
		err = ErrSourceNotAllowed
	case inst.Offset != 0:
		err = ErrOffsetNonZero
	case !inst.Imm.IsZero():
		err = ErrImmediateNonZero
	}
	if err != nil {
		return
	}

	w := word(uint8(mn.Class)|uint8(mn.Source)|mn.Op, inst)
	w.Imm = int32(mn.Width)
	words = []Word{w}
	return
}

func encodeLddw(inst Instruction) (words []Word, err error) {
	switch {
	case inst.Source != REG_NONE:
		err = ErrSourceNotAllowed
	case inst.Offset != 0:
		err = ErrOffsetNonZero
	}
	if err != nil {
		return
	}

	first := word(uint8(CLS_LD)|uint8(SIZE_DW)|uint8(MODE_IMM), inst)
	second := Word{Imm: int32(inst.Imm.High32())}
	words = []Word{first, second}
	return
}

func encodeLoadX(inst Instruction, mn Mnemonic) (words []Word, err error) {
	if !inst.Imm.IsZero() {
		err = ErrImmediateNonZero
		return
	}

	words = []Word{word(uint8(CLS_LDX)|uint8(MODE_MEM)|mn.Op, inst)}
	return
}

// storeMax is the largest unsigned immediate for each store size. A
// doubleword store only carries a 32-bit immediate.
var storeMax = map[Size]uint64{
	SIZE_B:  math.MaxUint8,
	SIZE_H:  math.MaxUint16,
	SIZE_W:  math.MaxUint32,
	SIZE_DW: math.MaxUint32,
}

func encodeStore(inst Instruction, mn Mnemonic) (words []Word, err error) {
	switch {
	case inst.Source != REG_NONE:
		err = ErrSourceNotAllowed
	case !inst.Imm.Fits(storeMax[Size(mn.Op)]):
		err = ErrImmediateRange
	}
	if err != nil {
		return
	}

	words = []Word{word(uint8(CLS_ST)|uint8(MODE_MEM)|mn.Op, inst)}
	return
}

func encodeStoreX(inst Instruction, mn Mnemonic) (words []Word, err error) {
	switch {
	case inst.Source == REG_NONE:
		err = ErrSourceMissing
	case !inst.Imm.IsZero():
		err = ErrImmediateNonZero
	}
	if err != nil {
		return
	}

	words = []Word{word(uint8(CLS_STX)|uint8(MODE_MEM)|mn.Op, inst)}
	return
}

// encodePacket emits the legacy ldabs and ldind packet loads.
func encodePacket(inst Instruction, mn Mnemonic) (words []Word, err error) {
	mode := MODE_ABS
	switch {
	case inst.Dest != REG_NONE:
		err = ErrDestNotAllowed
	case inst.Offset != 0:
		err = ErrOffsetNonZero
	case !inst.Imm.Fits32():
		err = ErrImmediateRange
	case mn.Family == FAMILY_LDABS && inst.Source != REG_NONE:
		err = ErrSourceNotAllowed
	case mn.Family == FAMILY_LDIND && inst.Source == REG_NONE:
		err = ErrSourceMissing
	}
	if err != nil {
		return
	}
	if mn.Family == FAMILY_LDIND {
		mode = MODE_IND
	}

	words = []Word{word(uint8(CLS_LD)|uint8(mode)|mn.Op, inst)}
	return
}

func encodeJump(inst Instruction, mn Mnemonic) (words []Word, err error) {
	var src Source
	switch mn.Family {
	case FAMILY_JA:
		switch {
		case inst.Dest != REG_NONE:
			err = ErrDestNotAllowed
		case inst.Source != REG_NONE:
			err = ErrSourceNotAllowed
		case !inst.Imm.IsZero():
			err = ErrImmediateNonZero
		}
	case FAMILY_EXIT:
		switch {
		case inst.Dest != REG_NONE:
			err = ErrDestNotAllowed
		case inst.Source != REG_NONE:
			err = ErrSourceNotAllowed
		case inst.Offset != 0:
			err = ErrOffsetNonZero
		case !inst.Imm.IsZero():
			err = ErrImmediateNonZero
		}
	case FAMILY_CALL:
		switch {
		case inst.Dest != REG_NONE:
			err = ErrDestNotAllowed
		case inst.Source != REG_NONE:
			err = ErrSourceNotAllowed
		case inst.Offset != 0:
			err = ErrOffsetNonZero
		case !inst.Imm.Fits32():
			err = ErrImmediateRange
		}
	default:
		src, err = sourceOrImm(inst)
	}
	if err != nil {
		return
	}

	words = []Word{word(uint8(mn.Class)|uint8(src)|mn.Op, inst)}
	return
}
