package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble([]string{
		"// prologue",
		"mov r1, 1",
		"lddw r2, 0x100000000",
		"exit",
	}, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(3, len(prog.Instructions))
	assert.Equal(32, prog.ByteLength())
	assert.Equal(32, len(prog.Bytes()))

	dbg := prog.Debug(0)
	assert.NotNil(dbg.Instruction)
	assert.Equal(2, dbg.LineNo)
	assert.Equal(0, dbg.Index)
	assert.Equal("// prologue\nmov r1, 1", dbg.AsmSource)

	dbg = prog.Debug(2)
	assert.NotNil(dbg.Instruction)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(1, dbg.Index)
	assert.Equal(1, dbg.Slot)

	dbg = prog.Debug(3)
	assert.Equal(4, dbg.LineNo)
	assert.Equal(2, dbg.Index)
	assert.Equal(0, dbg.Slot)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble([]string{"exit"}, nil)
	assert.NoError(err)

	dbg := prog.Debug(10)
	assert.Nil(dbg.Instruction)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(-1)
	assert.Nil(dbg.Instruction)

	assert.Equal(0, prog.LineNo(10))
	assert.Equal(1, prog.LineNo(0))
}

func TestProgram_InstructionAtProgramCounter(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble([]string{"lddw r1, 1", "exit"}, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	inst, ok := prog.InstructionAtProgramCounter(0)
	assert.True(ok)
	assert.Equal(2, inst.Slots())
	assert.Equal("lddw r1, 1", inst.AsmSource)

	_, ok = prog.InstructionAtProgramCounter(1)
	assert.False(ok)

	inst, ok = prog.InstructionAtProgramCounter(2)
	assert.True(ok)
	assert.Equal("exit", inst.AsmSource)

	_, ok = prog.InstructionAtProgramCounter(3)
	assert.False(ok)
}

func TestProgram_Words(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble([]string{"lddw r1, 0x100000002", "exit"}, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	var pcs []int
	var words [][]byte
	for pc, word := range prog.Words() {
		pcs = append(pcs, pc)
		words = append(words, word)
	}

	assert.Equal([]int{0, 1, 2}, pcs)
	assert.Equal([][]byte{
		{0x18, 0x01, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
		{0x95, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}, words)

	count := 0
	for range prog.Words() {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestProgram_AsmSource(t *testing.T) {
	assert := assert.New(t)

	prog, err := Assemble([]string{"// foo\n\nmov r1, 40"}, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(1, len(prog.Instructions))
	assert.Equal("// foo\n\nmov r1, 40", prog.Instructions[0].AsmSource)
	assert.Equal(3, prog.Instructions[0].LineNo)

	prog, err = Assemble([]string{"mov r0, 0", "// tail", "exit", "", "// end"}, nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal("mov r0, 0", prog.Instructions[0].AsmSource)
	assert.Equal("// tail\nexit\n\n// end", prog.Instructions[1].AsmSource)
}

func TestProgram_Annotations(t *testing.T) {
	table := []struct {
		lines    []string
		expected map[string]string
	}{
		{[]string{"// license: GPL type: socket", "ret #0"}, map[string]string{"license": "GPL", "type": "socket"}},
		{[]string{"//license:GPL", "ret #0"}, map[string]string{"license": "GPL"}},
		{[]string{"// license GPL", "ret #0"}, map[string]string{}},
		{[]string{"// license: GPL stray", "ret #0"}, map[string]string{}},
		{[]string{"ret #0 // license: GPL"}, map[string]string{}},
		{[]string{"", "// license: GPL", "ret #0"}, map[string]string{}},
		{[]string{"//", "ret #0"}, map[string]string{}},
		{nil, map[string]string{}},
	}

	for _, entry := range table {
		prog, err := Assemble(entry.lines, nil)
		if !assert.NoError(t, err, entry.lines) {
			continue
		}
		assert.Equal(t, entry.expected, prog.Annotations(), entry.lines)
	}
}
