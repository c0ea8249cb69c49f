// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ezrec/ebpfvm/asm"
	"github.com/ezrec/ebpfvm/bpf"
	"github.com/ezrec/ebpfvm/internal"
)

var (
	asmOutput  string
	asmFormat  string
	asmDialect string
	asmSymbols []string
)

// asmCmd represents the asm command
var asmCmd = &cobra.Command{
	Use:   "asm FILE...",
	Short: "Assemble source files into a program image",
	Long: `Asm assembles one or more source files, concatenated in order, into a
single program image. The image is written as one hex line per 8-byte
slot, or as raw bytes with '--format bin'.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsm,
}

func init() {
	asmCmd.Flags().StringVarP(&asmOutput, "output", "o", "-", "Output file")
	asmCmd.Flags().StringVar(&asmFormat, "format", "hex", "Output format: hex or bin")
	addAssemblerFlags(asmCmd)
	rootCmd.AddCommand(asmCmd)
}

// addAssemblerFlags adds the flags that configure an asm.Assembler.
func addAssemblerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&asmDialect, "dialect", "auto", "Source dialect: auto, ebpf or classic")
	cmd.Flags().StringArrayVar(&asmSymbols, "symbol", nil, "Define a symbol as name=value")
}

// newAssembler builds an assembler from the command line flags.
func newAssembler() (assembler *asm.Assembler, err error) {
	dialect, ok := asm.ParseDialect(asmDialect)
	if !ok {
		err = errors.Errorf("unknown dialect '%v'", asmDialect)
		return
	}

	assembler = &asm.Assembler{Verbose: verbose, Dialect: dialect}
	for _, def := range asmSymbols {
		name, text, ok := strings.Cut(def, "=")
		if !ok || len(name) == 0 {
			err = errors.Errorf("symbol '%v' is not name=value", def)
			return
		}
		imm, perr := bpf.ParseImm(text)
		if perr != nil {
			err = errors.Wrapf(perr, "symbol %v", name)
			return
		}
		assembler.Define(name, imm.Int64())
	}

	return
}

// sourceLines returns the lines of every file, in order.
func sourceLines(cmd *cobra.Command, paths []string) (lines iter.Seq[string], err error) {
	seqs := make([]iter.Seq[string], 0, len(paths))
	for _, path := range paths {
		var data []byte
		data, err = readInput(cmd, path)
		if err != nil {
			err = errors.Wrapf(err, "%v", path)
			return
		}
		text := strings.TrimSuffix(string(data), "\n")
		seqs = append(seqs, strings.SplitSeq(text, "\n"))
	}

	lines = internal.IterSeqConcat(seqs...)
	return
}

// assembleFiles assembles the named files as one unit.
func assembleFiles(cmd *cobra.Command, paths []string) (prog *asm.Program, err error) {
	assembler, err := newAssembler()
	if err != nil {
		return
	}

	lines, err := sourceLines(cmd, paths)
	if err != nil {
		return
	}

	prog, err = assembler.Assemble(slices.Collect(lines))
	if err != nil {
		err = errors.Wrapf(err, "%v", strings.Join(paths, ", "))
		return
	}

	if verbose {
		pp.Fprintln(os.Stderr, prog.Instructions)
	}

	return
}

func runAsm(cmd *cobra.Command, args []string) (err error) {
	prog, err := assembleFiles(cmd, args)
	if err != nil {
		return
	}

	var image []byte
	switch asmFormat {
	case "hex":
		image = []byte(bpf.FormatHex(prog.Bytes()))
	case "bin":
		image = prog.Bytes()
	default:
		err = errors.Errorf("unknown format '%v'", asmFormat)
		return
	}

	if asmOutput == "-" {
		_, err = cmd.OutOrStdout().Write(image)
		return
	}

	err = os.WriteFile(asmOutput, image, 0o644)
	if err != nil {
		err = errors.Wrapf(err, "%v", asmOutput)
	}
	return
}
