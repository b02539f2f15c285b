package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/strixlabs/vllmctl/internal/logger"
)

const (
	// DefaultSettingsDirName is the per-user settings directory name,
	// created under the home directory.
	DefaultSettingsDirName = ".vllmctl"

	// DefaultSettingsFileName is the host settings file inside the
	// settings directory.
	DefaultSettingsFileName = "config.yaml"

	// DefaultComposeFile is the Compose stack definition, looked up
	// relative to the working directory unless overridden.
	DefaultComposeFile = "docker-compose.yml"

	// DefaultEnvFile is where the resolver writes the finalized record.
	DefaultEnvFile = ".env"

	// DefaultDefaultsFile is the optional launch defaults source.
	DefaultDefaultsFile = "defaults.env"

	// DefaultProject is the Compose project name, also used as the
	// container label filter for the ps command.
	DefaultProject = "vllmctl"

	// DefaultUIProfile is the Compose profile that enables the optional
	// web UI service.
	DefaultUIProfile = "ui"

	// DefaultService is the inference server service name in the stack.
	DefaultService = "vllm"
)

// Settings holds host-side configuration: where the Compose stack lives and
// where resolver artifacts go. All fields have working defaults; the YAML
// file under ~/.vllmctl exists only to override them.
type Settings struct {
	// ComposeFile is the path to the Compose stack definition.
	ComposeFile string `yaml:"compose_file"`

	// EnvFile is the path the resolver writes the finalized record to
	// and Compose reads it from.
	EnvFile string `yaml:"env_file"`

	// DefaultsFile is the optional dotenv defaults source for the
	// resolver. Missing file is a non-fatal warning.
	DefaultsFile string `yaml:"defaults_file"`

	// Project is the Compose project name.
	Project string `yaml:"project"`

	// UIProfile is the Compose profile activated by --ui.
	UIProfile string `yaml:"ui_profile"`

	// Service is the inference server service name, used for one-off
	// runs like model pre-download.
	Service string `yaml:"service"`
}

// DefaultSettings returns settings with the built-in defaults applied.
func DefaultSettings() *Settings {
	return &Settings{
		ComposeFile:  DefaultComposeFile,
		EnvFile:      DefaultEnvFile,
		DefaultsFile: DefaultDefaultsFile,
		Project:      DefaultProject,
		UIProfile:    DefaultUIProfile,
		Service:      DefaultService,
	}
}

// SettingsPath returns the default settings file location
// (~/.vllmctl/config.yaml). Falls back to /tmp when the home directory
// cannot be determined.
func SettingsPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/tmp"
	}
	return filepath.Join(homeDir, DefaultSettingsDirName, DefaultSettingsFileName)
}

// LoadSettings reads the settings file at path, or the default location
// when path is empty. A missing file yields the defaults; unset fields in
// an existing file keep their defaults.
//
// Returns:
//   - The effective settings
//   - Error if an existing file cannot be read or parsed
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}

	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("Settings file %s not found, using defaults", path)
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	// Re-apply defaults for fields the file left empty.
	defaults := DefaultSettings()
	if settings.ComposeFile == "" {
		settings.ComposeFile = defaults.ComposeFile
	}
	if settings.EnvFile == "" {
		settings.EnvFile = defaults.EnvFile
	}
	if settings.DefaultsFile == "" {
		settings.DefaultsFile = defaults.DefaultsFile
	}
	if settings.Project == "" {
		settings.Project = defaults.Project
	}
	if settings.UIProfile == "" {
		settings.UIProfile = defaults.UIProfile
	}
	if settings.Service == "" {
		settings.Service = defaults.Service
	}

	return settings, nil
}
