// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"iter"
	"regexp"
	"strings"
	"sync"

	"github.com/ezrec/ebpfvm/bpf"
)

// Instruction is one assembled instruction and the source text it came
// from, including any comment or blank lines that precede it.
type Instruction struct {
	AsmSource   string // Source text, possibly spanning several lines.
	MachineCode []byte // One or two 8-byte slots.
	LineNo      int    // Line of the instruction itself.
}

// Slots returns the number of 8-byte slots of the instruction.
func (inst *Instruction) Slots() int {
	return len(inst.MachineCode) / bpf.WordSize
}

// Program is an assembled program. It is not modified after assembly.
type Program struct {
	Dialect      Dialect
	Instructions []Instruction
	Labels       Labels

	once  sync.Once
	image []byte
}

// Debug locates a program counter inside an instruction.
type Debug struct {
	*Instruction
	Index int // Instruction index.
	Slot  int // Slot within the instruction.
}

// ByteLength is the size of the program image.
func (prog *Program) ByteLength() (length int) {
	for _, inst := range prog.Instructions {
		length += len(inst.MachineCode)
	}
	return
}

// Bytes returns the program image. The result is cached and must not be
// modified.
func (prog *Program) Bytes() []byte {
	prog.once.Do(func() {
		prog.image = make([]byte, 0, prog.ByteLength())
		for _, inst := range prog.Instructions {
			prog.image = append(prog.image, inst.MachineCode...)
		}
	})
	return prog.image
}

// InstructionAtProgramCounter returns the instruction starting at slot pc.
func (prog *Program) InstructionAtProgramCounter(pc int) (inst *Instruction, ok bool) {
	dbg := prog.Debug(pc)
	if dbg.Instruction == nil || dbg.Slot != 0 {
		return
	}
	return dbg.Instruction, true
}

// Debug returns the instruction containing slot pc. The Instruction is
// nil when pc is outside the program.
func (prog *Program) Debug(pc int) (dbg Debug) {
	start := 0
	for n := range prog.Instructions {
		inst := &prog.Instructions[n]
		slots := inst.Slots()
		if pc >= start && pc < start+slots {
			dbg = Debug{
				Instruction: inst,
				Index:       n,
				Slot:        pc - start,
			}
			break
		}
		start += slots
	}

	return
}

// LineNo returns the source line of the instruction containing slot pc,
// or 0 when pc is outside the program.
func (prog *Program) LineNo(pc int) int {
	dbg := prog.Debug(pc)
	if dbg.Instruction == nil {
		return 0
	}
	return dbg.LineNo
}

// Words iterates over the program slots by program counter.
func (prog *Program) Words() iter.Seq2[int, []byte] {
	return func(yield func(pc int, word []byte) bool) {
		pc := 0
		for _, inst := range prog.Instructions {
			for slot := range inst.Slots() {
				word := inst.MachineCode[slot*bpf.WordSize : (slot+1)*bpf.WordSize]
				if !yield(pc, word) {
					return
				}
				pc++
			}
		}
	}
}

var annotationRe = regexp.MustCompile(`^(\S+): ?(\S+)`)

// Annotations returns the 'key: value' pairs of a leading '//' comment
// on the first line of the program. A malformed comment has none.
func (prog *Program) Annotations() (annotations map[string]string) {
	annotations = map[string]string{}

	if len(prog.Instructions) == 0 {
		return
	}
	first, _, _ := strings.Cut(prog.Instructions[0].AsmSource, "\n")
	if !strings.HasPrefix(first, "//") {
		return
	}

	text := strings.TrimSpace(first[2:])
	for len(text) != 0 {
		match := annotationRe.FindStringSubmatch(text)
		if match == nil {
			clear(annotations)
			return
		}
		annotations[match[1]] = match[2]
		text = strings.TrimLeft(text[len(match[0]):], " \t")
	}

	return
}
