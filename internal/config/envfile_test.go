package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEnvFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	env := map[string]string{
		"MODEL":               "Qwen/Qwen2.5-14B-Instruct-AWQ",
		"PORT":                "9500",
		"HIP_VISIBLE_DEVICES": "",
	}

	require.NoError(t, WriteEnvFile(path, env, time.Now()))

	got, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, env, got)
}

func TestWriteEnvFileHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteEnvFile(path, map[string]string{"PORT": "9500"}, ts))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.SplitN(string(content), "\n", 3)
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "DO NOT EDIT")
	assert.Equal(t, "# Generated at: 2026-08-29T12:00:00Z", lines[1])
}

func TestWriteEnvFileIsByteStable(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{"B_KEY": "2", "A_KEY": "1", "C_KEY": "3"}
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, WriteEnvFile(first, env, ts))
	require.NoError(t, WriteEnvFile(second, env, ts))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWriteEnvFileReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OLD=stale\n"), 0644))

	require.NoError(t, WriteEnvFile(path, map[string]string{"PORT": "9500"}, time.Now()))

	got, err := godotenv.Read(path)
	require.NoError(t, err)
	_, hasOld := got["OLD"]
	assert.False(t, hasOld)
	assert.Equal(t, "9500", got["PORT"])
}

func TestWriteEnvFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteEnvFile(filepath.Join(dir, ".env"), map[string]string{"A": "1"}, time.Now()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".env", entries[0].Name())
}

func TestReadEnvFileMissing(t *testing.T) {
	got, err := ReadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadDefaultsFileMissing(t *testing.T) {
	got, err := ReadDefaultsFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadDefaultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9000\nMODEL=org/model\n"), 0644))

	got, err := ReadDefaultsFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PORT": "9000", "MODEL": "org/model"}, got)
}
