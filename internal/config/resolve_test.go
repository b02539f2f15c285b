package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBuiltinDefaults(t *testing.T) {
	cfg, err := Resolve(NewLaunchViper())
	require.NoError(t, err)

	assert.Equal(t, "Qwen/Qwen2.5-14B-Instruct-AWQ", cfg.Model)
	assert.Equal(t, 9500, cfg.Port)
	// Model name contains -AWQ, so auto-detection lands on awq.
	assert.Equal(t, QuantAWQ, cfg.Quantization)
	assert.Equal(t, "auto", cfg.Dtype)
	assert.Equal(t, ArchGFX1201, cfg.Architecture)
	assert.Equal(t, "12.0.1", cfg.HSAOverrideGfx)
	assert.True(t, cfg.IsGFX1201)
	assert.True(t, cfg.TritonAWQEnabled)
	assert.Equal(t, "0", cfg.DeviceVisibility)
	assert.Empty(t, cfg.DistributedExecutor)
}

func TestResolveUnquantizedModel(t *testing.T) {
	v := NewLaunchViper()
	v.Set(KeyModel, "mistralai/Mistral-7B-Instruct-v0.2")

	cfg, err := Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, QuantNone, cfg.Quantization)
	assert.False(t, cfg.TritonAWQEnabled)
}

func TestResolveMultiGPU(t *testing.T) {
	v := NewLaunchViper()
	v.Set(KeyMultiGPU, true)

	cfg, err := Resolve(v)
	require.NoError(t, err)

	// Empty visibility is the "all devices" sentinel.
	assert.Equal(t, "", cfg.DeviceVisibility)
	assert.Equal(t, "mp", cfg.DistributedExecutor)

	env := cfg.EnvMap()
	visibility, present := env[EnvHIPVisibleDevices]
	assert.True(t, present)
	assert.Equal(t, "", visibility)
	assert.Equal(t, "mp", env[EnvDistributedExecutor])
}

func TestResolveArchitecturePresets(t *testing.T) {
	cases := []struct {
		arch      string
		hsa       string
		isGFX1201 bool
	}{
		{"gfx1201", "12.0.1", true},
		{"gfx1100", "11.0.0", false},
		{"gfx1030", "10.3.0", false},
		{"gfx90a", "9.0.10", false},
	}

	for _, tc := range cases {
		t.Run(tc.arch, func(t *testing.T) {
			v := NewLaunchViper()
			v.Set(KeyArchitecture, tc.arch)

			cfg, err := Resolve(v)
			require.NoError(t, err)

			assert.Equal(t, Architecture(tc.arch), cfg.Architecture)
			assert.Equal(t, tc.hsa, cfg.HSAOverrideGfx)
			assert.Equal(t, tc.isGFX1201, cfg.IsGFX1201)
		})
	}
}

func TestResolveUnsupportedArchitecture(t *testing.T) {
	v := NewLaunchViper()
	v.Set(KeyArchitecture, "gfx900")

	_, err := Resolve(v)
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)
	// The message must list the valid options for remediation.
	assert.Contains(t, err.Error(), "gfx1201")
	assert.Contains(t, err.Error(), "gfx90a")
}

func TestResolveExplicitQuantizationSkipsDetection(t *testing.T) {
	// An already-concrete value passes through even when the model name
	// points elsewhere; only the advisory warning fires.
	v := NewLaunchViper()
	v.Set(KeyModel, "org/Some-Model-AWQ")
	v.Set(KeyQuantization, "gptq")

	cfg, err := Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, QuantGPTQ, cfg.Quantization)
}

func TestResolveQuantizationResolutionIsIdempotent(t *testing.T) {
	v := NewLaunchViper()
	v.Set(KeyModel, "plain-model")

	first, err := Resolve(v)
	require.NoError(t, err)
	require.Equal(t, QuantNone, first.Quantization)

	// Re-resolving with the already-resolved value must not change it.
	v2 := NewLaunchViper()
	v2.Set(KeyModel, "plain-model")
	v2.Set(KeyQuantization, string(first.Quantization))

	second, err := Resolve(v2)
	require.NoError(t, err)
	assert.Equal(t, first.Quantization, second.Quantization)
}

func TestResolveValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"port zero", KeyPort, 0},
		{"port too large", KeyPort, 70000},
		{"gpu memory zero", KeyGPUMemory, 0.0},
		{"gpu memory above one", KeyGPUMemory, 1.5},
		{"max model len zero", KeyMaxModelLen, 0},
		{"empty model", KeyModel, ""},
		{"bad dtype", KeyDtype, "fp8"},
		{"bad quantization", KeyQuantization, "int4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewLaunchViper()
			v.Set(tc.key, tc.value)

			_, err := Resolve(v)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestDetectQuantization(t *testing.T) {
	cases := []struct {
		model string
		want  Quantization
	}{
		{"Qwen/Qwen2.5-14B-Instruct-AWQ", QuantAWQ},
		{"TheBloke/Llama-2-13B-GPTQ", QuantGPTQ},
		{"org/model-Quantized-4bit", QuantAWQ},
		{"org/model-quant", QuantAWQ},
		{"mistralai/Mistral-7B-Instruct-v0.2", QuantNone},
		// -AWQ wins over a later generic marker.
		{"org/model-AWQ-quantized", QuantAWQ},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectQuantization(tc.model), "model %s", tc.model)
	}
}

func TestPrecedenceFlagBeatsDefaultsFile(t *testing.T) {
	flags := pflag.NewFlagSet("launch", pflag.ContinueOnError)
	flags.Int("port", DefaultPort, "")
	flags.String("model", DefaultModel, "")
	require.NoError(t, flags.Parse([]string{"--port", "8123"}))

	v := NewLaunchViper()
	require.NoError(t, v.BindPFlag(KeyPort, flags.Lookup("port")))
	require.NoError(t, v.BindPFlag(KeyModel, flags.Lookup("model")))

	require.NoError(t, MergeDefaults(v, map[string]string{
		"PORT":  "9000",
		"MODEL": "defaults/model",
	}))

	cfg, err := Resolve(v)
	require.NoError(t, err)

	// --port was set on the command line and must beat the file.
	assert.Equal(t, 8123, cfg.Port)
	// --model was not set, so the file value wins over the fallback.
	assert.Equal(t, "defaults/model", cfg.Model)
}

func TestPrecedenceDefaultsFileBeatsFallback(t *testing.T) {
	v := NewLaunchViper()
	require.NoError(t, MergeDefaults(v, map[string]string{
		"ARCHITECTURE":  "gfx1100",
		"MAX_NUM_SEQS":  "128",
		"UNKNOWN_FIELD": "ignored",
	}))

	cfg, err := Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, ArchGFX1100, cfg.Architecture)
	assert.Equal(t, "11.0.0", cfg.HSAOverrideGfx)
	assert.Equal(t, 128, cfg.MaxNumSeqs)
	// Untouched fields keep their fallbacks.
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Setenv(EnvHFToken, "hf_testtoken")

	build := func() map[string]string {
		v := NewLaunchViper()
		v.Set(KeyModel, "org/Some-Model-GPTQ")
		v.Set(KeyUI, true)
		cfg, err := Resolve(v)
		require.NoError(t, err)
		return cfg.EnvMap()
	}

	assert.Equal(t, build(), build())
}

func TestEnvMapContents(t *testing.T) {
	t.Setenv(EnvHFToken, "hf_secret")
	t.Setenv(EnvAPIKey, "")

	v := NewLaunchViper()
	v.Set(KeyUI, true)
	cfg, err := Resolve(v)
	require.NoError(t, err)

	env := cfg.EnvMap()
	assert.Equal(t, "Qwen/Qwen2.5-14B-Instruct-AWQ", env[EnvModel])
	assert.Equal(t, "9500", env[EnvPort])
	assert.Equal(t, "awq", env[EnvQuantization])
	assert.Equal(t, "0.90", env[EnvGPUMemoryUtilization])
	assert.Equal(t, "true", env[EnvIsGFX1201])
	assert.Equal(t, "1", env[EnvUseTritonAWQ])
	assert.Equal(t, "ui", env[EnvComposeProfiles])
	assert.Equal(t, "hf_secret", env[EnvHFToken])

	// The propagated record never carries "auto".
	assert.NotEqual(t, "auto", env[EnvQuantization])
	// Empty credentials are not written at all.
	_, hasAPIKey := env[EnvAPIKey]
	assert.False(t, hasAPIKey)
}

func TestEnvMapWithoutUIProfile(t *testing.T) {
	cfg, err := Resolve(NewLaunchViper())
	require.NoError(t, err)

	_, hasProfiles := cfg.EnvMap()[EnvComposeProfiles]
	assert.False(t, hasProfiles)
}
