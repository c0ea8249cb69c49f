// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"slices"

	"github.com/ezrec/ebpfvm/bpf"
)

// Resolve substitutes helper names, symbols and expressions with their
// values. A nil helpers table means bpf.HelperNames.
func Resolve(unit *Unit, symbols map[string]int64, helpers []string) (resolved []bpf.Instruction, err error) {
	if helpers == nil {
		helpers = bpf.HelperNames
	}

	resolved = make([]bpf.Instruction, 0, len(unit.Instructions))
	for _, p := range unit.Instructions {
		inst := p.Instruction

		switch {
		case len(p.Label) != 0:
			id := slices.Index(helpers, p.Label)
			switch {
			case id >= 0:
				inst.Imm = bpf.ImmInt(int64(id))
			case hasLabel(unit.Labels, p.Label):
				err = ErrCallLabel
			default:
				err = &ErrUnknownHelper{Name: p.Label, LineNo: p.LineNo}
			}
		case len(p.Extension) != 0:
			value, ok := symbols[p.Extension]
			if ok {
				inst.Imm = bpf.ImmInt(value)
			} else {
				err = &ErrUnknownSymbol{Name: p.Extension, LineNo: p.LineNo}
			}
		case len(p.Expression) != 0:
			inst.Imm, err = evaluate(p.Expression, symbols)
		}

		if err != nil {
			err = &ErrSyntax{LineNo: p.LineNo, Line: p.Line, Err: err}
			resolved = nil
			return
		}

		resolved = append(resolved, inst)
	}

	return
}

func hasLabel(labels Labels, name string) bool {
	_, ok := labels[name]
	return ok
}
