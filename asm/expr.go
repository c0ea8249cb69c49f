// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/ebpfvm/bpf"
)

// evaluate does compile-time $(...) evaluations, with every symbol
// predeclared as an integer.
func evaluate(expr string, symbols map[string]int64) (imm bpf.Imm, err error) {
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, value := range symbols {
		pred[key] = starlark.MakeInt64(value)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	if value, ok := st_int.Int64(); ok {
		imm = bpf.ImmInt(value)
		return
	}
	if value, ok := st_int.Uint64(); ok {
		imm = bpf.ImmUint(value)
		return
	}

	err = ErrParseExpression(expr)
	return
}
