package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/strixlabs/vllmctl/internal/logger"
)

// envFileHeader marks the generated file as machine output. The file is
// regenerated on every launch; edits do not survive.
const envFileHeader = "# Generated by vllmctl. DO NOT EDIT - this file is rewritten on every launch."

// WriteEnvFile serializes the environment map to a dotenv file at path.
//
// The write is atomic: content goes to a temp file in the same directory
// which is then renamed over the target, so a crash mid-write never leaves
// a partial record for Compose to pick up. Keys are written sorted, making
// the output byte-identical for identical records (modulo the timestamp
// comment).
func WriteEnvFile(path string, env map[string]string, now time.Time) error {
	body, err := godotenv.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to serialize environment: %w", err)
	}

	content := fmt.Sprintf("%s\n# Generated at: %s\n%s\n",
		envFileHeader, now.UTC().Format(time.RFC3339), body)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vllmctl-env-*")
	if err != nil {
		return fmt.Errorf("failed to create temp env file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close env file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set env file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace env file %s: %w", path, err)
	}

	logger.Debug("Wrote resolved configuration to %s (%d keys)", path, len(env))
	return nil
}

// ReadEnvFile loads a previously generated env file. A missing file yields
// an empty map: callers fall back to built-in defaults.
func ReadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("Env file %s not found", path)
		return map[string]string{}, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return env, nil
}

// ReadDefaultsFile loads the optional defaults file. A missing file is not
// an error: the resolver warns and falls back to the hardcoded defaults.
//
// Returns:
//   - The key/value map from the file (nil when the file is absent)
//   - Error only for unreadable or malformed files
func ReadDefaultsFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Defaults file %s not found, using built-in defaults", path)
		return nil, nil
	}

	defaults, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read defaults file %s: %w", path, err)
	}

	logger.Debug("Loaded %d defaults from %s", len(defaults), path)
	return defaults, nil
}
