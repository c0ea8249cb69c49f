// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"errors"

	"github.com/ezrec/ebpfvm/translate"
)

var f = translate.From

var (
	// Operand validation errors
	ErrOffsetNonZero    = errors.New(f("offset must be 0"))
	ErrOffsetRange      = errors.New(f("offset out of range"))
	ErrImmediateNonZero = errors.New(f("immediate must be 0"))
	ErrImmediateRange   = errors.New(f("immediate out of range"))
	ErrSourceNotAllowed = errors.New(f("source register not allowed"))
	ErrSourceMissing    = errors.New(f("source register missing"))
	ErrDestNotAllowed   = errors.New(f("destination register not allowed"))
	ErrClassMismatch    = errors.New(f("mnemonic width does not match instruction class"))
	ErrOperandInvalid   = errors.New(f("operand mode invalid"))
	ErrJumpRange        = errors.New(f("jump target out of range"))
	ErrFalseTarget      = errors.New(f("false target not allowed"))

	// Decode errors
	ErrTruncated     = errors.New(f("truncated instruction"))
	ErrUnknownOpcode = errors.New(f("unknown opcode"))
	ErrHexSyntax     = errors.New(f("invalid hex image"))
)

// ErrMnemonic is returned when a mnemonic is not part of the instruction set.
type ErrMnemonic string

func (err ErrMnemonic) Error() string {
	return f("unknown opcode '%v'", string(err))
}

func (err ErrMnemonic) Is(target error) bool {
	return target == ErrUnknownOpcode
}

// ErrInstruction locates an encoding failure in the source.
type ErrInstruction struct {
	LineNo int
	Opname string
	Err    error
}

func (err *ErrInstruction) Error() string {
	return f("%v: %v", err.Opname, err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}

// ErrDecode locates a disassembly failure in a code buffer.
type ErrDecode struct {
	Offset int
	Opcode uint8
	Err    error
}

func (err *ErrDecode) Error() string {
	return f("byte %d opcode 0x%02x: %v", err.Offset, err.Opcode, err.Err)
}

func (err *ErrDecode) Unwrap() error {
	return err.Err
}

// ErrParseNumber is returned for malformed or out of range numeric literals.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrRegister is returned for unknown register names.
type ErrRegister string

func (err ErrRegister) Error() string {
	return f("'%v' is not a register", string(err))
}
