package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "borisrec", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["recover"])
	assert.True(t, names["inspect"])
}

func TestRootHelp(t *testing.T) {
	stdout, _, err := execute(t, NewRootCommand(), "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "recover")
	assert.Contains(t, stdout, "inspect")
	assert.Contains(t, stdout, "BORIS")
}
