package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs(t *testing.T) {
	c := New("docker-compose.yml", ".env", "vllmctl")

	assert.Equal(t,
		[]string{"compose", "-f", "docker-compose.yml", "-p", "vllmctl", "--env-file", ".env", "up", "-d"},
		c.Args("up", "-d"))
}

func TestArgsWithProfiles(t *testing.T) {
	c := New("stack.yml", ".env", "proj", "ui")

	assert.Equal(t,
		[]string{"compose", "-f", "stack.yml", "-p", "proj", "--env-file", ".env", "--profile", "ui", "pull"},
		c.Args("pull"))
}

func TestArgsWithoutEnvFile(t *testing.T) {
	c := New("stack.yml", "", "proj")

	assert.Equal(t,
		[]string{"compose", "-f", "stack.yml", "-p", "proj", "down"},
		c.Args("down"))
}

func TestArgsOneOffRun(t *testing.T) {
	c := New("stack.yml", ".env", "proj")

	got := c.Args("run", append([]string{"--rm", "vllm"}, "huggingface-cli", "download", "org/model")...)
	assert.Equal(t,
		[]string{"compose", "-f", "stack.yml", "-p", "proj", "--env-file", ".env",
			"run", "--rm", "vllm", "huggingface-cli", "download", "org/model"},
		got)
}
