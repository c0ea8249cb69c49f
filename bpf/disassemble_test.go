package bpf

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

const forktopHex = `
7913680000000000
b701000000000000
631af0ff00000000
0703000018050000
bfa1000000000000
07010000f0ffffff
b702000004000000
8500000004000000
61a1f0ff00000000
6701000020000000
c701000020000000
7b1af8ff00000000
1811000004000000
0000000000000000
bfa2000000000000
07020000f8ffffff
8500000001000000
1500040000000000
7901000000000000
0701000001000000
7b10000000000000
05000a0000000000
b701000001000000
7b1af0ff00000000
1811000004000000
0000000000000000
bfa2000000000000
07020000f8ffffff
bfa3000000000000
07030000f0ffffff
b704000001000000
8500000002000000
b700000000000000
9500000000000000
`

const forktopText = `ldxdw r3, [r1+104]
mov r1, 0
stxw [r10-16], r1
add r3, 1304
mov r1, r10
add r1, -16
mov r2, 4
call probe_read
ldxw r1, [r10-16]
lsh r1, 32
arsh r1, 32
stxdw [r10-8], r1
lddw r1, 4

mov r2, r10
add r2, -8
call map_lookup_elem
jeq r0, 0, +4
ldxdw r1, [r0]
add r1, 1
stxdw [r0], r1
ja +10
mov r1, 1
stxdw [r10-16], r1
lddw r1, 4

mov r2, r10
add r2, -8
mov r3, r10
add r3, -16
mov r4, 1
call map_update_elem
mov r0, 0
exit`

func TestDisassembleForktop(t *testing.T) {
	assert := assert.New(t)

	code, err := ParseHex(forktopHex)
	assert.NoError(err)
	assert.Equal(34*WordSize, len(code))

	lines, err := DisassembleAll(code)
	assert.NoError(err)

	expected := strings.Split(forktopText, "\n")
	if diff := cmp.Diff(expected, lines); diff != "" {
		t.Errorf("disassembly mismatch (-want +got):\n%s", diff)
	}
}

func TestDisassembleWindow(t *testing.T) {
	assert := assert.New(t)

	code, err := ParseHex(forktopHex)
	assert.NoError(err)

	lines, err := Disassemble(code, 17*WordSize, 5)
	assert.NoError(err)
	assert.Equal([]string{
		"jeq r0, 0, +4",
		"ldxdw r1, [r0]",
		"add r1, 1",
		"stxdw [r0], r1",
		"ja +10",
	}, lines)

	_, err = Disassemble(code, 32*WordSize, 3)
	var ed *ErrDecode
	assert.True(errors.As(err, &ed))
	assert.Equal(34*WordSize, ed.Offset)
	assert.ErrorIs(err, ErrTruncated)
}

func TestDisassembleInstruction(t *testing.T) {
	table := map[string]string{
		"1500040000000000": "jeq r0, 0, +4",
		"1d12fcff00000000": "jeq r2, r1, -4",
		"1601020005000000": "jeq32 r1, 5, +2",
		"8500000006000000": "call trace_printk",
		"85000000e8030000": "call 1000",
		"85000000ffffffff": "call -1",
		"0500000000000000": "ja +0",
		"8704000000000000": "neg r4",
		"8404000000000000": "neg32 r4",
		"d402000010000000": "le16 r2",
		"dc03000020000000": "be32 r3",
		"2800000000000c00": "ldabsh 786432",
		"2800000000000000": "ldabsh 0",
		"5060000001000000": "ldindb r6, 1",
		"720100ff00000000": "stb [r1-256], 0",
		"7a03f0ffab000000": "stdw [r3-16], 171",
		"b400000007000000": "mov32 r0, 7",
		"0000000000000000": "",
	}

	for hexText, expected := range table {
		code, err := ParseHex(hexText)
		assert.NoError(t, err)
		text, err := DisassembleInstruction(code, 0)
		assert.NoError(t, err, hexText)
		assert.Equal(t, expected, text, hexText)
	}
}

func TestDisassembleLddw(t *testing.T) {
	assert := assert.New(t)

	code, err := Encode(Instruction{Opname: "lddw", Dest: REG_R1, Imm: ImmUint(0x1122334455667788)})
	assert.NoError(err)
	assert.Equal(16, len(code))

	lines, err := DisassembleAll(code)
	assert.NoError(err)
	assert.Equal([]string{"lddw r1, 1234605616436508552", ""}, lines)

	_, err = DisassembleAll(code[:8])
	assert.ErrorIs(err, ErrTruncated)
}

func TestDisassembleInvalid(t *testing.T) {
	table := []string{
		"0600000000000000", // ja32
		"9600000000000000", // exit32
		"e500000000000000", // jump op 0xe0
		"e700000000000000", // alu op 0xe0
		"dc03000011000000", // be17
		"df03000010000000", // alu64 end
		"6000000000000000", // ld mem
		"c300000000000000", // stx atomic
		"000000",           // truncated
	}

	for _, hexText := range table {
		code, err := ParseHex(hexText)
		assert.NoError(t, err)
		_, err = DisassembleAll(code)
		var ed *ErrDecode
		assert.True(t, errors.As(err, &ed), hexText)
	}

	code := make([]byte, 16)
	for _, entry := range []struct{ offset, count int }{
		{0, -1},
		{-8, 1},
		{24, 0},
		{100, 1},
	} {
		lines, err := Disassemble(code, entry.offset, entry.count)
		assert.ErrorIs(t, err, ErrTruncated, entry)
		assert.Nil(t, lines, entry)
	}
}

func TestDisassembleEncoded(t *testing.T) {
	table := []struct {
		inst     Instruction
		expected string
	}{
		{Instruction{Opname: "mov", Dest: REG_R1, Imm: ImmInt(40)}, "mov r1, 40"},
		{Instruction{Opname: "xor32", Dest: REG_R1, Source: REG_R9}, "xor32 r1, r9"},
		{Instruction{Opname: "ldxh", Dest: REG_R2, Source: REG_R4, Offset: 0x12}, "ldxh r2, [r4+18]"},
		{Instruction{Opname: "stxw", Dest: REG_R10, Source: REG_R1, Offset: -8}, "stxw [r10-8], r1"},
		{Instruction{Opname: "jsle32", Dest: REG_R3, Imm: ImmInt(-7), Offset: 12}, "jsle32 r3, -7, +12"},
		{Instruction{Opname: "jneq", Dest: REG_R7, Imm: ImmInt(0xb), Offset: 4}, "jne r7, 11, +4"},
		{Instruction{Opname: "ldabsw", Imm: ImmInt(4)}, "ldabsw 4"},
		{Instruction{Opname: "exit"}, "exit"},
	}

	for _, entry := range table {
		code, err := Encode(entry.inst)
		assert.NoError(t, err, entry.expected)
		text, err := DisassembleInstruction(code, 0)
		assert.NoError(t, err, entry.expected)
		assert.Equal(t, entry.expected, text)
	}
}

func TestParseHex(t *testing.T) {
	assert := assert.New(t)

	code, err := ParseHex(" 95 00\n00 00\t00000000 ")
	assert.NoError(err)
	assert.Equal([]byte{0x95, 0, 0, 0, 0, 0, 0, 0}, code)
	assert.Equal("9500000000000000\n", FormatHex(code))

	_, err = ParseHex("9g")
	assert.ErrorIs(err, ErrHexSyntax)

	_, err = ParseHex("950")
	assert.ErrorIs(err, ErrHexSyntax)
}
