package bpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeClassic(t *testing.T) {
	table := []struct {
		inst     Instruction
		expected []byte
	}{
		{
			Instruction{Opname: "ldh", Operand: OPERAND_ABS, Imm: ImmInt(12)},
			[]byte{0x00, 0x28, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0c},
		},
		{
			Instruction{Opname: "ldi", Operand: OPERAND_K, Imm: ImmInt(4000111)},
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x3d, 0x09, 0x6f},
		},
		{
			Instruction{Opname: "ld", Operand: OPERAND_IND, Imm: ImmInt(40)},
			[]byte{0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x28},
		},
		{
			Instruction{Opname: "ld", Operand: OPERAND_LEN},
			[]byte{0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "ldb", Operand: OPERAND_ABS, Imm: ImmInt(0x17)},
			[]byte{0x00, 0x30, 0x00, 0x00, 0x00, 0x00, 0x00, 0x17},
		},
		{
			Instruction{Opname: "ld", Operand: OPERAND_MEM, Imm: ImmInt(0x10)},
			[]byte{0x00, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10},
		},
		{
			Instruction{Opname: "ldxi", Operand: OPERAND_K, Imm: ImmInt(0x47)},
			[]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x47},
		},
		{
			Instruction{Opname: "ldxb", Operand: OPERAND_MSH, Imm: ImmInt(14)},
			[]byte{0x00, 0xb1, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0e},
		},
		{
			Instruction{Opname: "ldx", Operand: OPERAND_MSH, Imm: ImmInt(14)},
			[]byte{0x00, 0xb1, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0e},
		},
		{
			Instruction{Opname: "st", Operand: OPERAND_MEM, Imm: ImmInt(0x10)},
			[]byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10},
		},
		{
			Instruction{Opname: "stx", Operand: OPERAND_MEM, Imm: ImmInt(0x10)},
			[]byte{0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10},
		},
		{
			Instruction{Opname: "jmp", JumpTrue: 2},
			[]byte{0x00, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02},
		},
		{
			Instruction{Opname: "jeq", Operand: OPERAND_K, Imm: ImmInt(42), JumpTrue: 2, JumpFalse: 1},
			[]byte{0x00, 0x15, 0x02, 0x01, 0x00, 0x00, 0x00, 0x2a},
		},
		{
			Instruction{Opname: "jne", Operand: OPERAND_K, Imm: ImmInt(42), JumpTrue: 2},
			[]byte{0x00, 0x15, 0x00, 0x02, 0x00, 0x00, 0x00, 0x2a},
		},
		{
			Instruction{Opname: "jlt", Operand: OPERAND_K, Imm: ImmInt(42), JumpTrue: 2},
			[]byte{0x00, 0x35, 0x00, 0x02, 0x00, 0x00, 0x00, 0x2a},
		},
		{
			Instruction{Opname: "jle", Operand: OPERAND_K, Imm: ImmInt(42), JumpTrue: 2},
			[]byte{0x00, 0x25, 0x00, 0x02, 0x00, 0x00, 0x00, 0x2a},
		},
		{
			Instruction{Opname: "jgt", Operand: OPERAND_X, JumpTrue: 2, JumpFalse: 1},
			[]byte{0x00, 0x2d, 0x02, 0x01, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "jset", Operand: OPERAND_K, Imm: ImmInt(42), JumpTrue: 1},
			[]byte{0x00, 0x45, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2a},
		},
		{
			Instruction{Opname: "add", Operand: OPERAND_X},
			[]byte{0x00, 0x0c, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "and", Operand: OPERAND_K, Imm: ImmInt(0xf)},
			[]byte{0x00, 0x54, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0f},
		},
		{
			Instruction{Opname: "neg"},
			[]byte{0x00, 0x84, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "tax"},
			[]byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "txa"},
			[]byte{0x00, 0x87, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "ret", Operand: OPERAND_K, Imm: ImmInt(-1)},
			[]byte{0x00, 0x06, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff},
		},
		{
			Instruction{Opname: "ret", Operand: OPERAND_A},
			[]byte{0x00, 0x16, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			Instruction{Opname: "ret", Operand: OPERAND_X},
			[]byte{0x00, 0x0e, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
	}

	for _, entry := range table {
		code, err := EncodeClassic(entry.inst)
		if !assert.NoError(t, err, entry.inst.Opname) {
			continue
		}
		assert.Equal(t, entry.expected, code, entry.inst.Opname)
	}
}

func TestEncodeClassicInvalid(t *testing.T) {
	table := []struct {
		inst     Instruction
		expected error
	}{
		{Instruction{Opname: "ldb", Operand: OPERAND_K, Imm: ImmInt(0x17)}, ErrOperandInvalid},
		{Instruction{Opname: "ldxi", Operand: OPERAND_ABS, Imm: ImmInt(0x17)}, ErrOperandInvalid},
		{Instruction{Opname: "ret", Operand: OPERAND_MEM}, ErrOperandInvalid},
		{Instruction{Opname: "tax", Operand: OPERAND_K}, ErrOperandInvalid},
		{Instruction{Opname: "ld", Dest: REG_R1, Operand: OPERAND_K}, ErrOperandInvalid},
		{Instruction{Opname: "ld", Operand: OPERAND_K, Imm: ImmUint(0x100000000)}, ErrImmediateRange},
		{Instruction{Opname: "jne", Operand: OPERAND_K, JumpTrue: 2, JumpFalse: 1}, ErrFalseTarget},
		{Instruction{Opname: "jeq", Operand: OPERAND_K, JumpTrue: 256}, ErrJumpRange},
		{Instruction{Opname: "jeq", Operand: OPERAND_K, JumpTrue: -1}, ErrJumpRange},
		{Instruction{Opname: "ja", JumpTrue: -1}, ErrJumpRange},
		{Instruction{Opname: "lddw"}, ErrUnknownOpcode},
	}

	for _, entry := range table {
		code, err := EncodeClassic(entry.inst)
		assert.Nil(t, code, entry.inst.Opname)
		assert.ErrorIs(t, err, entry.expected, entry.inst.Opname)
	}
}

func TestClassicTables(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsClassicOnly("ldh"))
	assert.False(IsClassicOnly("jeq"))
	assert.True(IsClassic("jeq"))
	assert.True(IsClassic("jneq"))
	assert.False(IsClassic("lddw"))

	jump, dual := IsClassicJump("jgt")
	assert.True(jump)
	assert.True(dual)
	jump, dual = IsClassicJump("jneq")
	assert.True(jump)
	assert.False(dual)
	jump, _ = IsClassicJump("ret")
	assert.False(jump)

	assert.Equal(int64(-0x1000), ClassicExtensions["proto"])
	assert.Equal(int64(-0x1000+60), ClassicExtensions["vlan_tpid"])
}
