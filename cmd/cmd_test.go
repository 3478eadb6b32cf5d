package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"serve", "ask", "catalog", "version"}
	got := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing subcommand %q", name)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	require.NoError(t, runVersion(versionCmd, nil))

	assert.Contains(t, out.String(), "chatgate")
	assert.Contains(t, out.String(), "Configuration:")
	assert.Contains(t, out.String(), "Provider: gemini")
}

func TestAskRequiresQuestion(t *testing.T) {
	err := askCmd.Args(askCmd, nil)
	assert.Error(t, err)

	err = askCmd.Args(askCmd, []string{"what", "is", "2+2?"})
	assert.NoError(t, err)
}
