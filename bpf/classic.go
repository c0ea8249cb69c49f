// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"math"
)

// ClassicExtensions are the Linux ancillary data offsets, usable as
// symbols in classic programs.
var ClassicExtensions = map[string]int64{
	"proto":      skfAdOff + 0,
	"type":       skfAdOff + 4,
	"ifidx":      skfAdOff + 8,
	"nla":        skfAdOff + 12,
	"nlan":       skfAdOff + 16,
	"mark":       skfAdOff + 20,
	"queue":      skfAdOff + 24,
	"hatype":     skfAdOff + 28,
	"rxhash":     skfAdOff + 32,
	"cpu":        skfAdOff + 36,
	"vlan_tci":   skfAdOff + 44,
	"vlan_avail": skfAdOff + 48,
	"poff":       skfAdOff + 52,
	"rand":       skfAdOff + 56,
	"vlan_tpid":  skfAdOff + 60,
}

const skfAdOff = -0x1000

// classicAlu maps classic arithmetic mnemonics to their operation.
var classicAlu = map[string]AluOp{
	"add": ALU_ADD,
	"sub": ALU_SUB,
	"mul": ALU_MUL,
	"div": ALU_DIV,
	"mod": ALU_MOD,
	"and": ALU_AND,
	"or":  ALU_OR,
	"xor": ALU_XOR,
	"lsh": ALU_LSH,
	"rsh": ALU_RSH,
}

// classicJump describes a conditional jump. Inverted jumps take a single
// target, encoded as the false branch of the complementary condition.
type classicJump struct {
	Op       JmpOp
	Inverted bool
}

var classicJumps = map[string]classicJump{
	"jeq":  {Op: JMP_JEQ},
	"jgt":  {Op: JMP_JGT},
	"jge":  {Op: JMP_JGE},
	"jset": {Op: JMP_JSET},
	"jne":  {Op: JMP_JEQ, Inverted: true},
	"jneq": {Op: JMP_JEQ, Inverted: true},
	"jlt":  {Op: JMP_JGE, Inverted: true},
	"jle":  {Op: JMP_JGT, Inverted: true},
}

// classicOnly lists the mnemonics that exist only in classic BPF.
var classicOnly = map[string]bool{
	"ld": true, "ldi": true, "ldh": true, "ldb": true,
	"ldxi": true, "st": true, "stx": true, "jmp": true,
	"ret": true, "tax": true, "txa": true, "ldx": true, "ldxb": true,
}

// IsClassicOnly is true for mnemonics that eBPF does not have.
func IsClassicOnly(name string) bool {
	return classicOnly[name]
}

// IsClassic is true for every classic BPF mnemonic.
func IsClassic(name string) bool {
	if classicOnly[name] || name == "ja" || name == "neg" {
		return true
	}
	_, alu := classicAlu[name]
	_, jump := classicJumps[name]
	return alu || jump
}

// IsClassicJump is true for classic mnemonics that take label targets.
// The second result reports whether a false target is allowed.
func IsClassicJump(name string) (jump bool, dual bool) {
	if name == "ja" || name == "jmp" {
		jump = true
		return
	}
	cj, ok := classicJumps[name]
	if !ok {
		return
	}
	jump = true
	dual = !cj.Inverted
	return
}

// EncodeClassic packs a classic BPF instruction into one slot.
func EncodeClassic(inst Instruction) (code []byte, err error) {
	defer func() {
		if err != nil {
			code = nil
			err = &ErrInstruction{LineNo: inst.LineNo, Opname: inst.Opname, Err: err}
		}
	}()

	if inst.Source != REG_NONE || inst.Dest != REG_NONE {
		err = ErrOperandInvalid
		return
	}
	if inst.Operand != OPERAND_NONE && inst.Operand != OPERAND_A && inst.Operand != OPERAND_X && !inst.Imm.Fits32() {
		err = ErrImmediateRange
		return
	}

	w := ClassicWord{K: inst.Imm.Low32()}
	name := inst.Opname

	operands := func(allowed map[Operand]uint16) bool {
		value, ok := allowed[inst.Operand]
		w.Code = value
		return ok
	}

	if op, ok := classicAlu[name]; ok {
		if !operands(map[Operand]uint16{
			OPERAND_K: uint16(CLS_ALU) | uint16(SRC_IMM),
			OPERAND_X: uint16(CLS_ALU) | uint16(SRC_REG),
		}) {
			err = ErrOperandInvalid
			return
		}
		w.Code |= uint16(op)
		code = w.Append(nil)
		return
	}

	if cj, ok := classicJumps[name]; ok {
		if !operands(map[Operand]uint16{
			OPERAND_K: uint16(CLS_JMP) | uint16(SRC_IMM),
			OPERAND_X: uint16(CLS_JMP) | uint16(SRC_REG),
		}) {
			err = ErrOperandInvalid
			return
		}
		w.Code |= uint16(cj.Op)
		jt, jf := inst.JumpTrue, inst.JumpFalse
		if cj.Inverted {
			if jf != 0 {
				err = ErrFalseTarget
				return
			}
			jt, jf = 0, jt
		}
		if jt < 0 || jt > math.MaxUint8 || jf < 0 || jf > math.MaxUint8 {
			err = ErrJumpRange
			return
		}
		w.Jt, w.Jf = uint8(jt), uint8(jf)
		code = w.Append(nil)
		return
	}

	var ok bool
	switch name {
	case "ld":
		ok = operands(map[Operand]uint16{
			OPERAND_K:   uint16(CLS_LD) | uint16(SIZE_W) | uint16(MODE_IMM),
			OPERAND_ABS: uint16(CLS_LD) | uint16(SIZE_W) | uint16(MODE_ABS),
			OPERAND_IND: uint16(CLS_LD) | uint16(SIZE_W) | uint16(MODE_IND),
			OPERAND_MEM: uint16(CLS_LD) | uint16(MODE_MEM),
			OPERAND_LEN: uint16(CLS_LD) | uint16(SIZE_W) | uint16(MODE_LEN),
		})
	case "ldi":
		ok = operands(map[Operand]uint16{
			OPERAND_K: uint16(CLS_LD) | uint16(SIZE_W) | uint16(MODE_IMM),
		})
	case "ldh":
		ok = operands(map[Operand]uint16{
			OPERAND_ABS: uint16(CLS_LD) | uint16(SIZE_H) | uint16(MODE_ABS),
			OPERAND_IND: uint16(CLS_LD) | uint16(SIZE_H) | uint16(MODE_IND),
		})
	case "ldb":
		ok = operands(map[Operand]uint16{
			OPERAND_ABS: uint16(CLS_LD) | uint16(SIZE_B) | uint16(MODE_ABS),
			OPERAND_IND: uint16(CLS_LD) | uint16(SIZE_B) | uint16(MODE_IND),
		})
	case "ldx":
		ok = operands(map[Operand]uint16{
			OPERAND_K:   uint16(CLS_LDX) | uint16(SIZE_W) | uint16(MODE_IMM),
			OPERAND_MEM: uint16(CLS_LDX) | uint16(MODE_MEM),
			OPERAND_MSH: uint16(CLS_LDX) | uint16(SIZE_B) | uint16(MODE_MSH),
			OPERAND_LEN: uint16(CLS_LDX) | uint16(SIZE_W) | uint16(MODE_LEN),
		})
	case "ldxi":
		ok = operands(map[Operand]uint16{
			OPERAND_K: uint16(CLS_LDX) | uint16(SIZE_W) | uint16(MODE_IMM),
		})
	case "ldxb":
		ok = operands(map[Operand]uint16{
			OPERAND_MSH: uint16(CLS_LDX) | uint16(SIZE_B) | uint16(MODE_MSH),
		})
	case "st":
		ok = operands(map[Operand]uint16{OPERAND_MEM: uint16(CLS_ST)})
	case "stx":
		ok = operands(map[Operand]uint16{OPERAND_MEM: uint16(CLS_STX)})
	case "jmp", "ja":
		ok = operands(map[Operand]uint16{OPERAND_NONE: uint16(CLS_JMP) | uint16(JMP_JA)})
		if ok && (inst.JumpTrue < 0 || inst.JumpTrue > math.MaxInt32) {
			err = ErrJumpRange
			return
		}
		w.K = uint32(inst.JumpTrue)
	case "neg":
		ok = operands(map[Operand]uint16{OPERAND_NONE: uint16(CLS_ALU) | uint16(ALU_NEG)})
	case "tax":
		ok = operands(map[Operand]uint16{OPERAND_NONE: uint16(CLS_MISC) | uint16(MISC_TAX)})
	case "txa":
		ok = operands(map[Operand]uint16{OPERAND_NONE: uint16(CLS_MISC) | uint16(MISC_TXA)})
	case "ret":
		ok = operands(map[Operand]uint16{
			OPERAND_K: uint16(CLS_RET) | uint16(RVAL_K),
			OPERAND_X: uint16(CLS_RET) | uint16(RVAL_X),
			OPERAND_A: uint16(CLS_RET) | uint16(RVAL_A),
		})
	default:
		err = ErrMnemonic(name)
		return
	}
	if !ok {
		err = ErrOperandInvalid
		return
	}

	code = w.Append(nil)
	return
}
