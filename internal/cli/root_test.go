package cli

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("test")
	require.NotNil(t, cmd)
	assert.Equal(t, "repflow", cmd.Use)
	assert.Equal(t, "test", cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	commands := []string{
		"seed", "start", "log", "skip", "skip-rest", "complete",
		"reset", "reset-exercise", "unskip", "status", "run", "mcp",
	}

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
	cmd := NewRootCommand("test")

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestLogCommandFlags(t *testing.T) {
	cmd := NewRootCommand("test")
	logCmd, _, err := cmd.Find([]string{"log"})
	require.NoError(t, err)

	for name, short := range map[string]string{"weight": "w", "reps": "r", "duration": "d", "distance": ""} {
		flag := logCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, short, flag.Shorthand, name)
	}
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand("test")
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	require.NotNil(t, seedCmd.Flags().Lookup("dry-run"))
	require.NotNil(t, seedCmd.Flags().Lookup("overwrite"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand("test")
	cmd.SetArgs([]string{"status", "--format", "yaml"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad config")))

	wrapped := WrapExitError(ExitFailure, "log failed", io.EOF)
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, io.EOF)
	assert.Equal(t, "log failed: EOF", wrapped.Error())
}

func TestExerciseName(t *testing.T) {
	assert.Equal(t, "Bench Press", exerciseName("bench_press"))
	assert.Equal(t, "Romanian Deadlift", exerciseName("romanian-deadlift"))
	assert.Equal(t, "exercise", exerciseName(""))
}

func TestOutput_TextPrintsState(t *testing.T) {
	buf := &bytes.Buffer{}
	out := NewOutput("text", buf)

	require.NoError(t, out.Done("hello", nil))
	assert.Equal(t, "hello\n", buf.String())
}
