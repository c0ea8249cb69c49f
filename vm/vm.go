// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"iter"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/ebpfvm/asm"
	"github.com/ezrec/ebpfvm/bpf"
	"github.com/ezrec/ebpfvm/internal"
)

const (
	MAX_PROGRAM_SIZE = 8192 // Largest program image, in bytes.
	HELPER_SLOTS     = 64   // Number of helper callback slots.
)

var _vm_defines = map[string]int64{
	"MAX_PROGRAM_SIZE": MAX_PROGRAM_SIZE,
}

// Engine steps a loaded program image. Engines call back into Vm.Call
// for helper invocations.
type Engine interface {
	// Load copies and validates a program image.
	Load(code []byte) error
	// Step executes one instruction. done is set once the program exits.
	Step() (done bool, err error)
	// Reset restores the initial register and memory state.
	Reset()
	// ProgramCounter is the current slot index.
	ProgramCounter() uint16
	// Register returns the value of register n.
	Register(n int) uint64
	// HotAddress is the most recently accessed memory address.
	HotAddress() uint64
	// Symbols are the addresses the engine exports to programs.
	Symbols() iter.Seq2[string, int64]
}

// Helper is a callback for a helper call. args holds r1 through r5, and
// the result is placed in r0.
type Helper func(args [5]uint64) (rc uint64, err error)

// Vm binds an assembled program to an execution engine.
type Vm struct {
	Verbose     bool         // If set, enables verbose logging.
	Engine      Engine       // Engine running the program.
	Program     *asm.Program // Currently loaded program listing.
	HelperNames []string     // Helper table, bpf.HelperNames if nil.
	Steps       int          // Steps since the last reset.

	Helpers [HELPER_SLOTS]Helper // Callbacks by helper number.
}

// NewVm creates a new virtual machine around an engine.
func NewVm(engine Engine) (vm *Vm) {
	vm = &Vm{
		Engine: engine,
	}

	return
}

func (vm *Vm) helperNames() []string {
	if vm.HelperNames == nil {
		return bpf.HelperNames
	}
	return vm.HelperNames
}

// Symbols returns an iterator over the virtual machine and engine symbols.
func (vm *Vm) Symbols() iter.Seq2[string, int64] {
	return internal.IterSeq2Concat(maps.All(_vm_defines),
		vm.Engine.Symbols(),
	)
}

// Assemble assembles source lines against the machine's symbols and
// helper table.
func (vm *Vm) Assemble(lines []string) (prog *asm.Program, err error) {
	assembler := &asm.Assembler{
		Verbose: vm.Verbose,
		Helpers: vm.HelperNames,
	}
	for name, value := range vm.Symbols() {
		assembler.Define(name, value)
	}

	return assembler.Assemble(lines)
}

// SetProgram hands a program image to the engine.
func (vm *Vm) SetProgram(prog *asm.Program) (err error) {
	if prog.ByteLength() > MAX_PROGRAM_SIZE {
		err = ErrProgramTooBig
		return
	}

	err = vm.Engine.Load(prog.Bytes())
	if err != nil {
		err = &ErrProgramInvalid{Err: err}
		return
	}

	if vm.Verbose {
		log.Printf("loaded %d instructions, %d bytes", len(prog.Instructions), prog.ByteLength())
	}

	vm.Program = prog
	vm.Steps = 0
	return
}

// Reset the engine state.
func (vm *Vm) Reset() (err error) {
	if vm.Program == nil {
		err = ErrNoProgram
		return
	}

	vm.Engine.Reset()
	vm.Steps = 0

	return
}

// LineNo returns the source line of the instruction about to execute.
func (vm *Vm) LineNo() int {
	if vm.Program == nil {
		return 0
	}

	return vm.Program.LineNo(int(vm.Engine.ProgramCounter()))
}

// Step executes a single instruction.
func (vm *Vm) Step() (done bool, err error) {
	lineno := vm.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	if vm.Program == nil {
		err = ErrNoProgram
		return
	}

	if vm.Verbose {
		pc := int(vm.Engine.ProgramCounter())
		if inst, ok := vm.Program.InstructionAtProgramCounter(pc); ok {
			log.Printf("%04d: % x r0=%#x hot=%#x", pc, inst.MachineCode[:bpf.WordSize], vm.Engine.Register(0), vm.Engine.HotAddress())
		}
	}

	done, err = vm.Engine.Step()
	if err == nil {
		vm.Steps++
	}

	return
}

// Run steps the program until it exits, returning r0.
func (vm *Vm) Run() (rc uint64, err error) {
	for {
		var done bool
		done, err = vm.Step()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	rc = vm.Engine.Register(0)
	return
}

// SetHelper registers the callback for a named helper. A nil helper
// clears the slot.
func (vm *Vm) SetHelper(name string, helper Helper) (err error) {
	id := slices.Index(vm.helperNames(), name)
	if id < 0 || id >= HELPER_SLOTS {
		err = ErrHelperName(name)
		return
	}

	vm.Helpers[id] = helper
	return
}

// Call dispatches a helper call by number.
func (vm *Vm) Call(id int64, args [5]uint64) (rc uint64, err error) {
	if id < 0 || id >= HELPER_SLOTS || vm.Helpers[id] == nil {
		err = ErrHelperMissing
		return
	}

	if vm.Verbose {
		log.Printf("call %d(%#x, %#x, %#x, %#x, %#x)", id, args[0], args[1], args[2], args[3], args[4])
	}

	rc, err = vm.Helpers[id](args)
	return
}
