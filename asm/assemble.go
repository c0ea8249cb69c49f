// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"io"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/ebpfvm/bpf"
)

// Assembler is a two pass assembler for eBPF and classic BPF.
type Assembler struct {
	Verbose bool             // If set, verbosely logs the assembler actions.
	Dialect Dialect          // Source dialect, detected when DIALECT_AUTO.
	Symbols map[string]int64 // Caller supplied symbols.
	Helpers []string         // Helper table, bpf.HelperNames if nil.
}

// Define defines a new symbol or redefines an existing one.
func (asm *Assembler) Define(name string, value int64) {
	if asm.Symbols == nil {
		asm.Symbols = map[string]int64{name: value}
	} else {
		asm.Symbols[name] = value
	}
}

// Parse assembles an input stream.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	source, err := io.ReadAll(input)
	if err != nil {
		return
	}

	return asm.Assemble(strings.Split(string(source), "\n"))
}

// symbols returns the caller's symbols, plus the classic ancillary data
// offsets for classic units.
func (asm *Assembler) symbols(dialect Dialect) map[string]int64 {
	if dialect != DIALECT_CLASSIC {
		return asm.Symbols
	}
	symbols := maps.Clone(bpf.ClassicExtensions)
	maps.Copy(symbols, asm.Symbols)
	return symbols
}

// Assemble assembles source lines. A line may itself hold several
// newline separated lines.
func (asm *Assembler) Assemble(lines []string) (prog *Program, err error) {
	unit, err := Parse(strings.Join(lines, "\n"), asm.Dialect)
	if err != nil {
		return
	}

	if asm.Verbose {
		log.Printf("dialect %v, %d instructions, %d labels", unit.Dialect, len(unit.Instructions), len(unit.Labels))
	}

	resolved, err := Resolve(unit, asm.symbols(unit.Dialect), asm.Helpers)
	if err != nil {
		return
	}

	encode := bpf.Encode
	if unit.Dialect == DIALECT_CLASSIC {
		encode = bpf.EncodeClassic
	}

	prog = &Program{
		Dialect:      unit.Dialect,
		Labels:       unit.Labels,
		Instructions: make([]Instruction, 0, len(resolved)),
	}

	first := 0
	for n, inst := range resolved {
		var code []byte
		code, err = encode(inst)
		if err != nil {
			p := &unit.Instructions[n]
			err = &ErrSyntax{LineNo: p.LineNo, Line: p.Line, Err: err}
			prog = nil
			return
		}

		last := unit.ends[n] + 1
		if n == len(resolved)-1 {
			last = len(unit.lines)
		}

		if asm.Verbose {
			log.Printf("%v: %v => % x", inst.LineNo, unit.Instructions[n].Line, code)
		}

		prog.Instructions = append(prog.Instructions, Instruction{
			AsmSource:   strings.Join(unit.lines[first:last], "\n"),
			MachineCode: code,
			LineNo:      inst.LineNo,
		})
		first = last
	}

	return
}

// Assemble assembles source lines against a symbol table.
func Assemble(lines []string, symbols map[string]int64) (prog *Program, err error) {
	asm := &Assembler{Symbols: symbols}
	return asm.Assemble(lines)
}
