package asm

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ebpfvm/bpf"
)

const forktopHex = `
7913680000000000 b701000000000000 631af0ff00000000 0703000018050000
bfa1000000000000 07010000f0ffffff b702000004000000 8500000004000000
61a1f0ff00000000 6701000020000000 c701000020000000 7b1af8ff00000000
1811000004000000 0000000000000000 bfa2000000000000 07020000f8ffffff
8500000001000000 1500040000000000 7901000000000000 0701000001000000
7b10000000000000 05000a0000000000 b701000001000000 7b1af0ff00000000
1811000004000000 0000000000000000 bfa2000000000000 07020000f8ffffff
bfa3000000000000 07030000f0ffffff b704000001000000 8500000002000000
b700000000000000 9500000000000000
`

func TestRoundTripForktop(t *testing.T) {
	assert := assert.New(t)

	code, err := bpf.ParseHex(forktopHex)
	assert.NoError(err)

	lines, err := bpf.DisassembleAll(code)
	assert.NoError(err)

	prog, err := Assemble(lines, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	// The map pseudo source register of lddw is not part of the text.
	expected := slices.Clone(code)
	expected[12*bpf.WordSize+1] = 0x01
	expected[24*bpf.WordSize+1] = 0x01

	assert.Equal(expected, prog.Bytes())
	assert.Equal(Labels{}, prog.Labels)
}

// instructionText drops the empty text of the second lddw slot.
func instructionText(lines []string) []string {
	return slices.DeleteFunc(slices.Clone(lines), func(line string) bool {
		return len(line) == 0
	})
}

func FuzzDisassemble(f *testing.F) {
	code, err := bpf.ParseHex(forktopHex)
	if err != nil {
		f.Fatal(err)
	}
	for n := 0; n < len(code); n += bpf.WordSize {
		f.Add(code[n : n+bpf.WordSize])
	}
	f.Add(code)

	f.Fuzz(func(t *testing.T, data []byte) {
		data = data[:len(data)/bpf.WordSize*bpf.WordSize]

		lines, err := bpf.DisassembleAll(data)
		if err != nil {
			t.Skip()
		}

		asm := &Assembler{Dialect: DIALECT_EBPF}
		prog, err := asm.Assemble(lines)
		if err != nil {
			t.Skip()
		}

		again, err := bpf.DisassembleAll(prog.Bytes())
		if err != nil {
			t.Fatalf("%v: %v", strings.Join(lines, "; "), err)
		}

		if diff := cmp.Diff(instructionText(lines), instructionText(again)); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}
