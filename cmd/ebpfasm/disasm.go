// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezrec/ebpfvm/bpf"
)

var (
	disasmHex    bool
	disasmOffset int
	disasmCount  int
)

// disasmCmd represents the disasm command
var disasmCmd = &cobra.Command{
	Use:   "disasm FILE",
	Short: "Disassemble an eBPF program image",
	Long: `Disasm decodes an eBPF program image, one line per 8-byte slot. The
second slot of an lddw prints as an empty line. On a terminal each line
is prefixed with its byte offset.
`,
	Args: cobra.ExactArgs(1),
	RunE: runDisasm,
}

func init() {
	disasmCmd.Flags().BoolVar(&disasmHex, "hex", false, "Input is a hex image")
	disasmCmd.Flags().IntVar(&disasmOffset, "offset", 0, "Byte offset of the first slot")
	disasmCmd.Flags().IntVar(&disasmCount, "count", -1, "Number of slots, or -1 for all")
	rootCmd.AddCommand(disasmCmd)
}

func runDisasm(cmd *cobra.Command, args []string) (err error) {
	path := args[0]
	code, err := readInput(cmd, path)
	if err != nil {
		err = errors.Wrapf(err, "%v", path)
		return
	}

	if disasmHex {
		code, err = bpf.ParseHex(string(code))
		if err != nil {
			err = errors.Wrapf(err, "%v", path)
			return
		}
	}

	if disasmOffset < 0 || disasmOffset > len(code) {
		err = errors.Errorf("%v: offset %d outside %d byte image", path, disasmOffset, len(code))
		return
	}

	count := disasmCount
	if count < 0 {
		count = (len(code) - disasmOffset + bpf.WordSize - 1) / bpf.WordSize
	}

	lines, err := bpf.Disassemble(code, disasmOffset, count)
	if err != nil {
		err = errors.Wrapf(err, "%v", path)
		return
	}

	out := cmd.OutOrStdout()
	addresses := false
	if file, ok := out.(*os.File); ok {
		addresses = term.IsTerminal(int(file.Fd()))
	}

	for n, line := range lines {
		if addresses {
			_, err = fmt.Fprintf(out, "%04x: %v\n", disasmOffset+n*bpf.WordSize, line)
		} else {
			_, err = fmt.Fprintln(out, line)
		}
		if err != nil {
			return
		}
	}

	return
}
