// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"fmt"
	"strconv"
	"strings"
)

// Register is an eBPF register operand. The zero value means the
// operand is unused, so register numbers are stored off by one.
type Register uint8

const (
	REG_NONE = Register(iota)
	REG_R0
	REG_R1
	REG_R2
	REG_R3
	REG_R4
	REG_R5
	REG_R6
	REG_R7
	REG_R8
	REG_R9
	REG_R10
)

// REG_FP is the read-only frame pointer.
const REG_FP = REG_R10

// RegisterOf returns the register for a 4-bit register field.
func RegisterOf(num uint8) Register {
	return Register(num&0xf) + 1
}

// Num returns the register field value, 0 for an unused register.
func (reg Register) Num() uint8 {
	if reg == REG_NONE {
		return 0
	}
	return uint8(reg - 1)
}

// Valid is true for r0 through r10.
func (reg Register) Valid() bool {
	return reg >= REG_R0 && reg <= REG_R10
}

func (reg Register) String() string {
	if reg == REG_NONE {
		return ""
	}
	return fmt.Sprintf("r%d", reg.Num())
}

// ParseRegister parses 'rN' or '%rN'.
func ParseRegister(word string) (reg Register, err error) {
	name := strings.TrimPrefix(word, "%")
	if len(name) < 2 || name[0] != 'r' {
		err = ErrRegister(word)
		return
	}
	num, perr := strconv.ParseUint(name[1:], 10, 8)
	if perr != nil || num > 10 || (len(name) > 2 && name[1] == '0') {
		err = ErrRegister(word)
		return
	}
	reg = RegisterOf(uint8(num))
	return
}

// IsRegister is true when word names an eBPF register.
func IsRegister(word string) bool {
	_, err := ParseRegister(word)
	return err == nil
}
