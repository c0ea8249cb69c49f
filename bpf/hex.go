// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package bpf

import (
	"encoding/hex"
	"strings"
)

// ParseHex decodes a hex image, ignoring whitespace between digits.
func ParseHex(text string) (code []byte, err error) {
	digits := strings.Join(strings.Fields(text), "")
	code, err = hex.DecodeString(digits)
	if err != nil {
		err = ErrHexSyntax
		code = nil
	}
	return
}

// FormatHex renders code as one line of hex digits per slot.
func FormatHex(code []byte) string {
	var sb strings.Builder
	for len(code) > 0 {
		n := min(WordSize, len(code))
		sb.WriteString(hex.EncodeToString(code[:n]))
		sb.WriteByte('\n')
		code = code[n:]
	}
	return sb.String()
}
