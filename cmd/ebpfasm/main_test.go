package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of cmd and its subcommands to its default.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		var err error
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			err = slice.Replace([]string{})
		} else {
			err = flag.Value.Set(flag.DefValue)
		}
		require.NoError(t, err, flag.Name)
		flag.Changed = false
	}

	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

func execute(t *testing.T, input string, args ...string) (output string, err error) {
	resetFlags(t, rootCmd)

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	output = out.String()
	return
}

func TestCommands(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "prog.s")
	err := os.WriteFile(source, []byte("// license: GPL\nmov r1, SLOT\ndone: exit\n"), 0o644)
	require.NoError(t, err)

	output, err := execute(t, "", "asm", "--format", "hex", "--symbol", "SLOT=0x28", "-o", "-", source)
	assert.NoError(err)
	assert.Equal("b701000028000000\n9500000000000000\n", output)

	image := filepath.Join(dir, "prog.bin")
	_, err = execute(t, "", "asm", "--format", "bin", "--symbol", "SLOT=40", "-o", image, source)
	assert.NoError(err)
	data, err := os.ReadFile(image)
	assert.NoError(err)
	assert.Equal(16, len(data))

	output, err = execute(t, "", "disasm", image)
	assert.NoError(err)
	assert.Equal("mov r1, 40\nexit\n", output)

	output, err = execute(t, "9500000000000000\n", "disasm", "--hex", "--count", "1", "-")
	assert.NoError(err)
	assert.Equal("exit\n", output)

	output, err = execute(t, "", "disasm", "--offset", "8", image)
	assert.NoError(err)
	assert.Equal("exit\n", output)

	output, err = execute(t, "", "check", "--dialect", "ebpf", "--symbol", "SLOT=1", source)
	assert.NoError(err)
	assert.Contains(output, "label done: 1\n")
	assert.Contains(output, "annotation license: GPL\n")

	// Flags from earlier runs do not leak into later ones.
	_, err = execute(t, "", "asm", source)
	assert.Error(err)

	_, err = execute(t, "", "asm", "--dialect", "cbpf", "--symbol", "SLOT=1", source)
	assert.Error(err)

	_, err = execute(t, "", "asm", "--format", "elf", "--symbol", "SLOT=1", source)
	assert.Error(err)

	_, err = execute(t, "", "asm", "--symbol", "SLOT", source)
	assert.Error(err)

	_, err = execute(t, "", "asm", filepath.Join(dir, "missing.s"))
	assert.Error(err)
}

func TestCommandsDisasmOffset(t *testing.T) {
	assert := assert.New(t)

	for _, offset := range []string{"9", "100", "-8"} {
		_, err := execute(t, "9500000000000000\n", "disasm", "--hex", "--offset", offset, "--count", "-1", "-")
		assert.Error(err, offset)

		_, err = execute(t, "9500000000000000\n", "disasm", "--hex", "--offset", offset, "--count", "1", "-")
		assert.Error(err, offset)
	}

	output, err := execute(t, "9500000000000000\n", "disasm", "--hex", "--offset", "8", "-")
	assert.NoError(err)
	assert.Equal("", output)
}
