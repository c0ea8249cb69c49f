// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"errors"

	"github.com/ezrec/ebpfvm/translate"
)

var f = translate.From

var (
	// Lexical errors
	ErrCommentStart = errors.New(f("comments start with '//'"))
	ErrBracket      = errors.New(f("unterminated bracket"))

	// Parse errors
	ErrLabelDuplicate = errors.New(f("label duplicated"))
	ErrOpcodeMissing  = errors.New(f("opcode missing"))
	ErrOperandMissing = errors.New(f("operand missing"))
	ErrOperandExtra   = errors.New(f("excessive arguments"))
	ErrOperandInvalid = errors.New(f("operand invalid"))
	ErrDialectMixed   = errors.New(f("classic and eBPF instructions mixed"))

	// Jump target errors
	ErrJumpBackward = errors.New(f("jump target must be forward"))
	ErrJumpRange    = errors.New(f("jump target too far"))
	ErrCallLabel    = errors.New(f("call target is a code label"))
)

// ErrLabelMissing is returned when a jump names an undefined label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v missing", string(err))
}

// ErrUnknownHelper is returned when a call names a helper not in the table.
type ErrUnknownHelper struct {
	Name   string
	LineNo int
}

func (err *ErrUnknownHelper) Error() string {
	return f("unknown helper '%v'", err.Name)
}

// ErrUnknownSymbol is returned when an operand names an undefined symbol.
type ErrUnknownSymbol struct {
	Name   string
	LineNo int
}

func (err *ErrUnknownSymbol) Error() string {
	return f("unknown symbol '%v'", err.Name)
}

// ErrParseExpression is returned when a $(...) expression does not
// evaluate to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSyntax locates any assembly failure in the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
