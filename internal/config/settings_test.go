package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)
}

func TestLoadSettingsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"compose_file: /srv/vllm/docker-compose.yml\nproject: prod-vllm\n"), 0644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/vllm/docker-compose.yml", settings.ComposeFile)
	assert.Equal(t, "prod-vllm", settings.Project)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultEnvFile, settings.EnvFile)
	assert.Equal(t, DefaultDefaultsFile, settings.DefaultsFile)
	assert.Equal(t, DefaultUIProfile, settings.UIProfile)
	assert.Equal(t, DefaultService, settings.Service)
}

func TestLoadSettingsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compose_file: [unclosed"), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}
