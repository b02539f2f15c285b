package entrypoint

import (
	"os"
	"os/exec"
	"strings"

	"github.com/strixlabs/vllmctl/internal/config"
	"github.com/strixlabs/vllmctl/internal/logger"
)

const (
	// EnvPatchScript overrides the aiter patch script location.
	EnvPatchScript = "AITER_PATCH_SCRIPT"

	// defaultPatchScript is where the image build places the patch.
	defaultPatchScript = "/opt/vllmctl/patch_gfx1201.py"
)

// ApplyGfxPatch applies the aiter gfx1201 compatibility patch when the
// resolved architecture is gfx1201. The patch teaches the aiter kernel
// library about the RDNA 4 chip so vLLM does not abort on it.
//
// Every outcome short of success is a warning: a missing script, a failing
// script, or a non-gfx1201 architecture all let startup continue. Returns
// true only when the patch actually ran and succeeded.
func ApplyGfxPatch(env Environ) bool {
	if !isTruthy(env[config.EnvIsGFX1201]) {
		return false
	}

	script := env[EnvPatchScript]
	if script == "" {
		script = defaultPatchScript
	}

	if _, err := os.Stat(script); err != nil {
		logger.Warn("aiter patch script %s not found, skipping gfx1201 patch", script)
		return false
	}

	logger.Info("Applying aiter gfx1201 patch: %s", script)
	cmd := exec.Command("python3", script)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		logger.Warn("aiter gfx1201 patch failed (continuing without it): %v", err)
		return false
	}

	return true
}

// isTruthy interprets the boolean encodings that survive env propagation.
func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// lookupExecutable resolves a binary against PATH for the exec handoff.
func lookupExecutable(name string) (string, error) {
	return exec.LookPath(name)
}
