// Package config implements the launch configuration resolver for vllmctl.
//
// This package handles all configuration-related functionality including:
//   - Merging CLI flags, the defaults file, and hardcoded fallbacks
//   - Quantization auto-detection from the model identifier
//   - GPU architecture presets and their derived environment values
//   - Serializing the resolved record to the env file consumed by Compose
//
// Resolution is deterministic: the same flags, defaults file, and ambient
// credentials always produce the same record. The resolved record is
// immutable once built; downstream code only reads it.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/strixlabs/vllmctl/internal/logger"
)

// Viper keys for launch configuration. These match the CLI flag names so
// cobra flags can be bound directly.
const (
	KeyModel               = "model"
	KeyPort                = "port"
	KeyQuantization        = "quantization"
	KeyDtype               = "dtype"
	KeyGPUMemory           = "gpu-memory"
	KeyMaxModelLen         = "max-model-len"
	KeyMaxNumSeqs          = "max-num-seqs"
	KeyMaxNumBatchedTokens = "max-num-batched-tokens"
	KeyArchitecture        = "architecture"
	KeyMultiGPU            = "multi-gpu"
	KeyUI                  = "ui"
)

// Hardcoded fallbacks, the lowest layer of the precedence chain. A field is
// taken from the CLI flag if set, else from the defaults file, else from
// these values.
const (
	DefaultModel               = "Qwen/Qwen2.5-14B-Instruct-AWQ"
	DefaultPort                = 9500
	DefaultQuantization        = "auto"
	DefaultDtype               = "auto"
	DefaultGPUMemory           = 0.90
	DefaultMaxModelLen         = 16384
	DefaultMaxNumSeqs          = 64
	DefaultMaxNumBatchedTokens = 16384
	DefaultArchitecture        = "gfx1201"
)

// Sentinel errors for the fatal host-side failure modes. Callers match with
// errors.Is; the wrapped message carries the remediation text.
var (
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	ErrInvalidConfiguration    = errors.New("invalid configuration")
)

// Quantization is a model-weight compression scheme. "auto" exists only
// during resolution; a resolved record always carries awq, gptq, or none.
type Quantization string

const (
	QuantAuto Quantization = "auto"
	QuantAWQ  Quantization = "awq"
	QuantGPTQ Quantization = "gptq"
	QuantNone Quantization = "none"
)

// Architecture is a named AMD GPU hardware family. Only the four presets
// below are recognized; anything else is rejected before any side effect.
type Architecture string

const (
	ArchGFX1201 Architecture = "gfx1201" // RDNA 4 (e.g. RX 9070, Strix Halo class)
	ArchGFX1100 Architecture = "gfx1100" // RDNA 3
	ArchGFX1030 Architecture = "gfx1030" // RDNA 2
	ArchGFX90A  Architecture = "gfx90a"  // CDNA 2 (MI200 series)
)

// archPreset holds the values fully determined by an architecture choice.
type archPreset struct {
	// HSAOverride is the HSA_OVERRIDE_GFX_VERSION value for the family.
	HSAOverride string

	// IsGFX1201 gates the aiter runtime patch inside the container.
	IsGFX1201 bool
}

// archPresets is the closed architecture table. Exactly these four entries;
// ResolveArchitecture rejects everything else.
var archPresets = map[Architecture]archPreset{
	ArchGFX1201: {HSAOverride: "12.0.1", IsGFX1201: true},
	ArchGFX1100: {HSAOverride: "11.0.0", IsGFX1201: false},
	ArchGFX1030: {HSAOverride: "10.3.0", IsGFX1201: false},
	ArchGFX90A:  {HSAOverride: "9.0.10", IsGFX1201: false},
}

// SupportedArchitectures returns the recognized architecture names, sorted,
// for error messages and help text.
func SupportedArchitectures() []string {
	names := make([]string, 0, len(archPresets))
	for arch := range archPresets {
		names = append(names, string(arch))
	}
	sort.Strings(names)
	return names
}

// ResolveArchitecture validates an architecture string against the preset
// table and returns the matching preset.
//
// Returns:
//   - The validated Architecture and its preset
//   - ErrUnsupportedArchitecture (wrapped) listing the valid options
func ResolveArchitecture(name string) (Architecture, archPreset, error) {
	arch := Architecture(strings.ToLower(strings.TrimSpace(name)))
	preset, ok := archPresets[arch]
	if !ok {
		return "", archPreset{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedArchitecture, name, strings.Join(SupportedArchitectures(), ", "))
	}
	return arch, preset, nil
}

// quantMarkerPattern matches generic quantization markers in model names,
// e.g. "foo-quantized" or "bar-Quant-w4".
var quantMarkerPattern = regexp.MustCompile(`(?i)-quant`)

// DetectQuantization guesses the quantization scheme from the model
// identifier. First match wins:
//
//  1. name contains "-AWQ"  -> awq
//  2. name contains "-GPTQ" -> gptq
//  3. name matches case-insensitive "-quant" -> awq
//  4. otherwise -> none
//
// This is a best-effort heuristic over common Hugging Face naming
// conventions, not a guarantee; --quantization overrides it.
func DetectQuantization(model string) Quantization {
	switch {
	case strings.Contains(model, "-AWQ"):
		return QuantAWQ
	case strings.Contains(model, "-GPTQ"):
		return QuantGPTQ
	case quantMarkerPattern.MatchString(model):
		return QuantAWQ
	default:
		return QuantNone
	}
}

// LaunchConfig is the resolved, validated configuration record. It is built
// once by Resolve and passed by value afterwards; the env file and the
// container environment are its only serialized forms.
type LaunchConfig struct {
	Model                string
	Port                 int
	Quantization         Quantization // never "auto" after resolution
	Dtype                string
	GPUMemoryUtilization float64
	MaxModelLen          int
	MaxNumSeqs           int
	MaxNumBatchedTokens  int
	Architecture         Architecture
	HSAOverrideGfx       string
	IsGFX1201            bool
	MultiGPU             bool
	LaunchUI             bool

	// Derived flags.
	TritonAWQEnabled bool
	// DeviceVisibility is the HIP_VISIBLE_DEVICES value. Empty means
	// "all devices" (multi-GPU); otherwise it is pinned to device 0.
	DeviceVisibility string
	// DistributedExecutor is the vLLM executor backend, set to "mp" for
	// multi-GPU runs and empty otherwise.
	DistributedExecutor string

	// Credential passthroughs copied verbatim from the resolver's own
	// environment. Never derived, never validated here.
	HFToken string
	APIKey  string
}

// NewLaunchViper creates a viper instance seeded with the hardcoded
// fallbacks. CLI flags are bound on top by the launch command; the defaults
// file is merged in between by LoadDefaultsFile. Each launch resolution uses
// a fresh instance so nothing leaks between invocations.
func NewLaunchViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyQuantization, DefaultQuantization)
	v.SetDefault(KeyDtype, DefaultDtype)
	v.SetDefault(KeyGPUMemory, DefaultGPUMemory)
	v.SetDefault(KeyMaxModelLen, DefaultMaxModelLen)
	v.SetDefault(KeyMaxNumSeqs, DefaultMaxNumSeqs)
	v.SetDefault(KeyMaxNumBatchedTokens, DefaultMaxNumBatchedTokens)
	v.SetDefault(KeyArchitecture, DefaultArchitecture)
	v.SetDefault(KeyMultiGPU, false)
	v.SetDefault(KeyUI, false)
	return v
}

// defaultsFileKeys maps env-style keys accepted in the defaults file to
// viper keys. The defaults file uses the same names as the generated env
// file so an old output can be reused as a defaults source.
var defaultsFileKeys = map[string]string{
	EnvModel:                KeyModel,
	EnvPort:                 KeyPort,
	EnvQuantization:         KeyQuantization,
	EnvDtype:                KeyDtype,
	EnvGPUMemoryUtilization: KeyGPUMemory,
	EnvMaxModelLen:          KeyMaxModelLen,
	EnvMaxNumSeqs:           KeyMaxNumSeqs,
	EnvMaxNumBatchedTokens:  KeyMaxNumBatchedTokens,
	EnvArchitecture:         KeyArchitecture,
	"MULTI_GPU":             KeyMultiGPU,
	"LAUNCH_UI":             KeyUI,
}

// MergeDefaults merges a defaults map (env-style keys, as returned by
// godotenv.Read) into the resolution viper. Unknown keys are ignored with a
// debug log so a full generated env file can serve as a defaults source.
func MergeDefaults(v *viper.Viper, defaults map[string]string) error {
	merged := make(map[string]interface{}, len(defaults))
	for envKey, value := range defaults {
		key, ok := defaultsFileKeys[envKey]
		if !ok {
			logger.Debug("Ignoring defaults file key: %s", envKey)
			continue
		}
		merged[key] = value
	}
	return v.MergeConfigMap(merged)
}

// Resolve builds the finalized LaunchConfig from a prepared viper instance.
//
// Resolution order per field: bound CLI flag (if set) > defaults file value
// > hardcoded fallback. After merging, Resolve validates every field,
// auto-detects quantization when requested, resolves the architecture
// preset, computes derived flags, and copies credential passthroughs from
// the ambient environment.
//
// Returns:
//   - The immutable resolved record
//   - ErrUnsupportedArchitecture or ErrInvalidConfiguration (wrapped) on
//     any validation failure; no side effects occur on error
func Resolve(v *viper.Viper) (*LaunchConfig, error) {
	cfg := &LaunchConfig{
		Model:                strings.TrimSpace(v.GetString(KeyModel)),
		Port:                 v.GetInt(KeyPort),
		Dtype:                strings.ToLower(strings.TrimSpace(v.GetString(KeyDtype))),
		GPUMemoryUtilization: v.GetFloat64(KeyGPUMemory),
		MaxModelLen:          v.GetInt(KeyMaxModelLen),
		MaxNumSeqs:           v.GetInt(KeyMaxNumSeqs),
		MaxNumBatchedTokens:  v.GetInt(KeyMaxNumBatchedTokens),
		MultiGPU:             v.GetBool(KeyMultiGPU),
		LaunchUI:             v.GetBool(KeyUI),
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model must not be empty", ErrInvalidConfiguration)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidConfiguration, cfg.Port)
	}
	if cfg.GPUMemoryUtilization <= 0 || cfg.GPUMemoryUtilization > 1.0 {
		return nil, fmt.Errorf("%w: gpu-memory %.2f must be in (0.0, 1.0]",
			ErrInvalidConfiguration, cfg.GPUMemoryUtilization)
	}
	if cfg.MaxModelLen <= 0 {
		return nil, fmt.Errorf("%w: max-model-len must be positive", ErrInvalidConfiguration)
	}
	if cfg.MaxNumSeqs <= 0 || cfg.MaxNumBatchedTokens <= 0 {
		return nil, fmt.Errorf("%w: max-num-seqs and max-num-batched-tokens must be positive",
			ErrInvalidConfiguration)
	}

	switch cfg.Dtype {
	case "auto", "float16", "bfloat16":
	default:
		return nil, fmt.Errorf("%w: dtype %q (supported: auto, float16, bfloat16)",
			ErrInvalidConfiguration, cfg.Dtype)
	}

	quant, err := resolveQuantization(v.GetString(KeyQuantization), cfg.Model)
	if err != nil {
		return nil, err
	}
	cfg.Quantization = quant
	warnQuantizationMismatch(cfg.Model, quant)

	arch, preset, err := ResolveArchitecture(v.GetString(KeyArchitecture))
	if err != nil {
		return nil, err
	}
	cfg.Architecture = arch
	cfg.HSAOverrideGfx = preset.HSAOverride
	cfg.IsGFX1201 = preset.IsGFX1201

	cfg.TritonAWQEnabled = cfg.Quantization == QuantAWQ
	if cfg.MultiGPU {
		cfg.DeviceVisibility = "" // empty means all devices
		cfg.DistributedExecutor = "mp"
	} else {
		cfg.DeviceVisibility = "0"
	}

	cfg.HFToken = os.Getenv(EnvHFToken)
	cfg.APIKey = os.Getenv(EnvAPIKey)

	return cfg, nil
}

// resolveQuantization maps the requested quantization to a concrete value.
// Detection only runs for empty or "auto" requests; an already-concrete
// value passes through untouched, so re-resolving a resolved record is a
// no-op.
func resolveQuantization(requested, model string) (Quantization, error) {
	q := Quantization(strings.ToLower(strings.TrimSpace(requested)))
	switch q {
	case "", QuantAuto:
		detected := DetectQuantization(model)
		logger.Debug("Auto-detected quantization %s for model %s", detected, model)
		return detected, nil
	case QuantAWQ, QuantGPTQ, QuantNone:
		return q, nil
	default:
		return "", fmt.Errorf("%w: quantization %q (supported: auto, awq, gptq, none)",
			ErrInvalidConfiguration, requested)
	}
}

// warnQuantizationMismatch emits advisory warnings when the resolved
// quantization disagrees with what the model name suggests. Warnings never
// change the resolved value and never fail the run.
func warnQuantizationMismatch(model string, q Quantization) {
	hasMarker := quantMarkerPattern.MatchString(model)
	switch q {
	case QuantAWQ:
		if !strings.Contains(model, "-AWQ") && !hasMarker {
			logger.Warn("Quantization awq requested but model name %q has no -AWQ or quant marker; "+
				"the model may not be AWQ-quantized", model)
		}
	case QuantGPTQ:
		if !strings.Contains(model, "-GPTQ") {
			logger.Warn("Quantization gptq requested but model name %q has no -GPTQ marker; "+
				"the model may not be GPTQ-quantized", model)
		}
	case QuantNone:
		if strings.Contains(model, "-AWQ") || strings.Contains(model, "-GPTQ") || hasMarker {
			logger.Warn("Quantization none requested but model name %q suggests quantized weights; "+
				"loading may fail or waste memory", model)
		}
	}
}

// EnvMap serializes the record to the flat environment contract consumed by
// Compose and the container entrypoint. The map always contains the full
// record (empty string values included) so the generated file is complete
// and byte-stable across runs; credentials are included only when present.
func (c *LaunchConfig) EnvMap() map[string]string {
	env := map[string]string{
		EnvModel:                c.Model,
		EnvPort:                 strconv.Itoa(c.Port),
		EnvQuantization:         string(c.Quantization),
		EnvDtype:                c.Dtype,
		EnvGPUMemoryUtilization: strconv.FormatFloat(c.GPUMemoryUtilization, 'f', 2, 64),
		EnvMaxModelLen:          strconv.Itoa(c.MaxModelLen),
		EnvMaxNumSeqs:           strconv.Itoa(c.MaxNumSeqs),
		EnvMaxNumBatchedTokens:  strconv.Itoa(c.MaxNumBatchedTokens),
		EnvArchitecture:         string(c.Architecture),
		EnvIsGFX1201:            strconv.FormatBool(c.IsGFX1201),
		EnvHSAOverrideGfx:       c.HSAOverrideGfx,
		EnvHIPVisibleDevices:    c.DeviceVisibility,
		EnvDistributedExecutor:  c.DistributedExecutor,
		EnvLaunchUI:             strconv.FormatBool(c.LaunchUI),
	}

	if c.TritonAWQEnabled {
		env[EnvUseTritonAWQ] = "1"
	} else {
		env[EnvUseTritonAWQ] = "0"
	}

	// COMPOSE_PROFILES activates the optional UI service when Compose
	// reads the generated file.
	if c.LaunchUI {
		env[EnvComposeProfiles] = "ui"
	}

	if c.HFToken != "" {
		env[EnvHFToken] = c.HFToken
	}
	if c.APIKey != "" {
		env[EnvAPIKey] = c.APIKey
	}

	return env
}
