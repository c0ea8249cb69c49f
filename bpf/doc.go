// Package bpf holds the BPF instruction set tables and the per-instruction
// encoder and decoder.
//
// Two encodings are supported. eBPF instructions are 8-byte little endian
// slots:
//
//	byte 0     opcode = class | mode or source | operation
//	byte 1     src << 4 | dst
//	bytes 2-3  signed 16-bit offset
//	bytes 4-7  signed 32-bit immediate
//
// lddw occupies two slots, the second carrying the high 32 bits of the
// immediate in its immediate field with every other field zero.
//
// Classic BPF instructions are 8-byte big endian slots of a 16-bit code,
// the true and false jump offsets, and a 32-bit constant.
//
// Encode and EncodeClassic validate operands per mnemonic family and never
// produce partial output. Disassemble is the inverse of Encode.
package bpf
