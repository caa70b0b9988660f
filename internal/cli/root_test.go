package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectConfig = filepath.Join("testdata", "project", "pql.yaml")

func project(parts ...string) string {
	return filepath.Join(append([]string{"testdata", "project"}, parts...)...)
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pql", cmd.Use)
	assert.Contains(t, cmd.Long, "pql.yaml")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"resolve", "check", "batch", "log", "std", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCompileFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"resolve", "check", "batch"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		target := sub.Flags().Lookup("target")
		require.NotNil(t, target, name)
		assert.Equal(t, "t", target.Shorthand)
		assert.NotNil(t, sub.Flags().Lookup("strict"), name)
		assert.NotNil(t, sub.Flags().Lookup("catalog"), name)
	}

	check, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)
	assert.Equal(t, "j", check.Flags().Lookup("workers").Shorthand)

	resolve, _, err := cmd.Find([]string{"resolve"})
	require.NoError(t, err)
	assert.Nil(t, resolve.Flags().Lookup("workers"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "std")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestCommandContextDefaultsToBackground(t *testing.T) {
	assert.NotNil(t, commandContext(&cobra.Command{}))
}
