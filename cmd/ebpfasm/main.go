// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ebpfasm",
	Short: "eBPF and classic BPF assembler and disassembler",
	Long: `Ebpfasm assembles eBPF or classic BPF source into program images,
disassembles eBPF images back into source, and checks programs for
label and annotation errors.

A file name of '-' reads standard input.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose mode")
}

// readInput reads a whole file, or standard input for '-'.
func readInput(cmd *cobra.Command, path string) (data []byte, err error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func main() {
	log.SetFlags(0)

	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}
