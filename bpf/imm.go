// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"math"
	"strconv"
	"strings"
)

// Imm is an immediate operand wide enough for lddw. Bits holds the two's
// complement value, Neg records that the literal was written negative so
// that range checks can tell -1 from 0xffffffffffffffff.
type Imm struct {
	Bits uint64
	Neg  bool
}

// ImmInt returns the immediate for a signed value.
func ImmInt(value int64) Imm {
	return Imm{Bits: uint64(value), Neg: value < 0}
}

// ImmUint returns the immediate for an unsigned value.
func ImmUint(value uint64) Imm {
	return Imm{Bits: value}
}

// ParseImm parses a decimal or 0x hexadecimal literal with an optional
// sign and an optional leading '#'.
func ParseImm(word string) (imm Imm, err error) {
	text := strings.TrimPrefix(word, "#")
	neg := false
	switch {
	case strings.HasPrefix(text, "-"):
		neg = true
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}

	// Leading zeros are decimal, not octal.
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base = 16
		text = text[2:]
	}

	magnitude, perr := strconv.ParseUint(text, base, 64)
	if perr != nil || len(text) == 0 {
		err = ErrParseNumber(word)
		return
	}

	if neg {
		if magnitude > 1<<63 {
			err = ErrParseNumber(word)
			return
		}
		imm = Imm{Bits: -magnitude, Neg: magnitude != 0}
		return
	}

	imm = Imm{Bits: magnitude}
	return
}

// Int64 returns the value as a signed 64-bit integer.
func (imm Imm) Int64() int64 {
	return int64(imm.Bits)
}

// IsZero is true for a zero immediate.
func (imm Imm) IsZero() bool {
	return imm.Bits == 0
}

// Fits32 is true when the value fits the 32-bit immediate field, either as
// a signed or as an unsigned quantity.
func (imm Imm) Fits32() bool {
	if imm.Neg {
		return imm.Int64() >= math.MinInt32
	}
	return imm.Bits <= math.MaxUint32
}

// Fits is true when a non-negative value is at most max, or a negative
// value fits in 32 bits.
func (imm Imm) Fits(max uint64) bool {
	if imm.Neg {
		return imm.Fits32()
	}
	return imm.Bits <= max
}

// Low32 returns the low 32 bits.
func (imm Imm) Low32() uint32 {
	return uint32(imm.Bits)
}

// High32 returns the high 32 bits.
func (imm Imm) High32() uint32 {
	return uint32(imm.Bits >> 32)
}

func (imm Imm) String() string {
	if imm.Neg {
		return strconv.FormatInt(imm.Int64(), 10)
	}
	return strconv.FormatUint(imm.Bits, 10)
}
