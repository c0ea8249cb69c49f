// Package asm implements the assembler for eBPF and classic BPF programs.
//
// Assembly runs in three stages. Parse tokenizes each line, binds labels
// to instruction indexes, and converts jump labels to slot offsets. Only
// forward jumps to labels are accepted. Resolve substitutes helper names,
// caller supplied symbols and $(...) expressions. Finally every resolved
// instruction is packed by the bpf package into a Program.
//
// Source syntax:
//
//	// comment
//	label: mov r1, 40
//	ldxw r2, [r10-8]
//	jeq r0, 0, done
//	call trace_printk
//	done: exit
//
// Classic BPF sources are detected automatically:
//
//	ldh [12]
//	jne #0x806, drop
//	ret #-1
//	drop: ret #0
package asm
