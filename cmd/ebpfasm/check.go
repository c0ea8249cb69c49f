// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Assemble source files and report labels and annotations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	addAssemblerFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	prog, err := assembleFiles(cmd, args)
	if err != nil {
		return
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dialect: %v\n", prog.Dialect)
	fmt.Fprintf(out, "instructions: %d\n", len(prog.Instructions))
	fmt.Fprintf(out, "bytes: %d\n", prog.ByteLength())

	for _, label := range slices.Sorted(maps.Keys(prog.Labels)) {
		fmt.Fprintf(out, "label %v: %d\n", label, prog.Labels[label])
	}

	annotations := prog.Annotations()
	for _, key := range slices.Sorted(maps.Keys(annotations)) {
		fmt.Fprintf(out, "annotation %v: %v\n", key, annotations[key])
	}

	return
}
