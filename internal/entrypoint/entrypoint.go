// Package entrypoint implements the container-side startup validator.
//
// It runs as PID 1 inside the inference container: it snapshots the
// propagated environment, best-effort applies the gfx1201 compatibility
// patch, normalizes ROCm/vLLM runtime knobs, validates the two required
// fields, builds the API server argument vector, and replaces itself with
// the server process.
//
// The package deliberately does not share the resolver's in-memory record.
// The environment is the only contract between host and container, and the
// validator carries its own fallbacks so it stays usable when the container
// is started by hand without the launcher.
package entrypoint

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/strixlabs/vllmctl/internal/config"
	"github.com/strixlabs/vllmctl/internal/logger"
)

// Sentinel errors for the fatal container-side failure modes. Each missing
// required field gets its own error so operators can tell them apart in
// container logs.
var (
	ErrModelRequired = errors.New("MODEL environment variable is required")
	ErrPortRequired  = errors.New("PORT environment variable is required")
)

// Environ is an immutable snapshot of the process environment. Taking a
// snapshot up front keeps the rest of the startup logic pure and testable;
// ambient state is read exactly once.
type Environ map[string]string

// Snapshot captures the current process environment.
func Snapshot() Environ {
	env := make(Environ)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

// normalizationDefaults are the validator's own fallbacks, applied only for
// variables absent from the environment. They are intentionally defined
// here rather than imported from the resolver: the two layers agree in
// practice, but the validator must work standalone.
var normalizationDefaults = map[string]string{
	config.EnvHSAOverrideGfx:       "12.0.1",
	"HSA_ENABLE_SDMA":              "0",
	config.EnvHIPVisibleDevices:    "0",
	"HIP_FORCE_DEV_KERNARG":        "1",
	"VLLM_WORKER_MULTIPROC_METHOD": "spawn",
	"VLLM_USE_V1":                  "1",
	config.EnvGPUMemoryUtilization: "0.90",
	config.EnvMaxModelLen:          "16384",
	config.EnvMaxNumSeqs:           "64",
	config.EnvMaxNumBatchedTokens:  "16384",
	"HOST":                         "0.0.0.0",
}

// Normalize fills the fixed set of runtime knobs with fallbacks for absent
// variables and returns a new snapshot. A present-but-empty value is
// respected: an empty HIP_VISIBLE_DEVICES is the resolver's "all devices"
// sentinel and must not be replaced with a device index.
func Normalize(env Environ) Environ {
	out := make(Environ, len(env)+len(normalizationDefaults))
	for k, v := range env {
		out[k] = v
	}
	for k, fallback := range normalizationDefaults {
		if _, present := out[k]; !present {
			out[k] = fallback
		}
	}
	return out
}

// Validate enforces the required-field contract: MODEL and PORT must be
// non-empty after normalization. This is the one hard gate before process
// handoff; everything else in startup is advisory.
func Validate(env Environ) error {
	if env[config.EnvModel] == "" {
		return ErrModelRequired
	}
	if env[config.EnvPort] == "" {
		return ErrPortRequired
	}
	return nil
}

// ExecSpec describes the process handoff: the binary to exec, its full
// argument vector (argv[0] included), and the environment to pass. The
// harness decides whether to actually exec or just inspect the vector.
type ExecSpec struct {
	Path string
	Args []string
	Env  []string
}

// serverModule is the vLLM OpenAI-compatible API server entry module.
const serverModule = "vllm.entrypoints.openai.api_server"

// BuildCommand constructs the inference server exec descriptor from a
// validated environment.
//
// The argument order is fixed for debuggability: mandatory arguments first
// (model, host, port, memory and batching limits, eager execution), then
// the conditional ones. --distributed-executor-backend is appended only
// when set, --quantization only when set and not "none", --dtype only when
// set.
func BuildCommand(env Environ) (*ExecSpec, error) {
	if err := Validate(env); err != nil {
		return nil, err
	}

	args := []string{
		"python3", "-m", serverModule,
		"--model", env[config.EnvModel],
		"--host", env["HOST"],
		"--port", env[config.EnvPort],
		"--gpu-memory-utilization", env[config.EnvGPUMemoryUtilization],
		"--max-num-seqs", env[config.EnvMaxNumSeqs],
		"--max-num-batched-tokens", env[config.EnvMaxNumBatchedTokens],
		"--max-model-len", env[config.EnvMaxModelLen],
		"--enforce-eager",
	}

	if backend := env[config.EnvDistributedExecutor]; backend != "" {
		args = append(args, "--distributed-executor-backend", backend)
	}
	if quant := env[config.EnvQuantization]; quant != "" && quant != string(config.QuantNone) {
		args = append(args, "--quantization", quant)
	}
	if dtype := env[config.EnvDtype]; dtype != "" {
		args = append(args, "--dtype", dtype)
	}

	return &ExecSpec{
		Path: "python3",
		Args: args,
		Env:  flattenEnviron(env),
	}, nil
}

// flattenEnviron converts the snapshot back to the KEY=value form exec
// expects. An empty HIP_VISIBLE_DEVICES is dropped entirely: for the ROCm
// runtime, unset means "all devices" while empty means "none".
func flattenEnviron(env Environ) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		if k == config.EnvHIPVisibleDevices && v == "" {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

// Run performs the complete entrypoint sequence: patch, normalize,
// validate, build, exec. It only returns on failure; on success the
// process image is replaced and no code after the exec runs.
func Run() error {
	env := Snapshot()

	// The aiter patch is an optional optimization and must never block
	// startup; failures are logged and ignored.
	ApplyGfxPatch(env)

	env = Normalize(env)

	if err := Validate(env); err != nil {
		return err
	}

	spec, err := BuildCommand(env)
	if err != nil {
		return err
	}

	path, err := lookupExecutable(spec.Path)
	if err != nil {
		return fmt.Errorf("inference server executable not found: %w", err)
	}

	logger.Info("Starting inference server: %s", strings.Join(spec.Args, " "))
	if err := unix.Exec(path, spec.Args, spec.Env); err != nil {
		return fmt.Errorf("failed to exec inference server: %w", err)
	}
	return nil // unreachable: exec does not return on success
}
