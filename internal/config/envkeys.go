package config

// Environment variable names shared between the host-side resolver and the
// container entrypoint. The generated env file and the container process
// environment are the only channel between the two, so these names are a
// compatibility surface: renaming one breaks already-built images.
const (
	EnvModel                = "MODEL"
	EnvPort                 = "PORT"
	EnvQuantization         = "QUANTIZATION"
	EnvDtype                = "DTYPE"
	EnvGPUMemoryUtilization = "GPU_MEMORY_UTILIZATION"
	EnvMaxModelLen          = "MAX_MODEL_LEN"
	EnvMaxNumSeqs           = "MAX_NUM_SEQS"
	EnvMaxNumBatchedTokens  = "MAX_NUM_BATCHED_TOKENS"
	EnvArchitecture         = "ARCHITECTURE"
	EnvIsGFX1201            = "IS_GFX1201"
	EnvHSAOverrideGfx       = "HSA_OVERRIDE_GFX_VERSION"
	EnvHIPVisibleDevices    = "HIP_VISIBLE_DEVICES"
	EnvUseTritonAWQ         = "VLLM_USE_TRITON_AWQ"
	EnvDistributedExecutor  = "VLLM_DISTRIBUTED_EXECUTOR_BACKEND"
	EnvLaunchUI             = "LAUNCH_UI"
	EnvComposeProfiles      = "COMPOSE_PROFILES"

	// Credential passthroughs. The resolver copies these from its own
	// environment into the generated file without validating or deriving
	// them in any way.
	EnvHFToken = "HF_TOKEN"
	EnvAPIKey  = "VLLM_API_KEY"
)
