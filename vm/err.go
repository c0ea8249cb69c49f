// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"errors"

	"github.com/ezrec/ebpfvm/translate"
)

var f = translate.From

var (
	ErrNoProgram     = errors.New(f("no program loaded"))
	ErrProgramTooBig = errors.New(f("program too big"))
	ErrHelperMissing = errors.New(f("helper not registered"))
)

// ErrHelperName is returned when a helper name has no callback slot.
type ErrHelperName string

func (err ErrHelperName) Error() string {
	return f("helper '%v' has no slot", string(err))
}

// ErrProgramInvalid wraps an engine's rejection of a program image.
type ErrProgramInvalid struct {
	Err error
}

func (err *ErrProgramInvalid) Error() string {
	return f("program invalid: %v", err.Err)
}

func (err *ErrProgramInvalid) Unwrap() error {
	return err.Err
}

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
