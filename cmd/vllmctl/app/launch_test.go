package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunchRejectsExtraPositionalArgs(t *testing.T) {
	cmd := NewVllmctlCommand()
	cmd.SetArgs([]string{"launch", "org/model-a", "org/model-b"})

	assert.Error(t, cmd.Execute())
}

func TestLaunchRejectsUnknownFlag(t *testing.T) {
	cmd := NewVllmctlCommand()
	cmd.SetArgs([]string{"launch", "--tensor-parallel", "2"})

	assert.Error(t, cmd.Execute())
}

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := NewVllmctlCommand()

	expected := []string{"launch", "entrypoint", "down", "ps", "pull", "devices", "chat", "version"}
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range expected {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
