package app

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strixlabs/vllmctl/internal/compose"
	"github.com/strixlabs/vllmctl/internal/config"
	"github.com/strixlabs/vllmctl/internal/gpu"
	"github.com/strixlabs/vllmctl/internal/logger"
)

// LaunchOptions holds options for the launch command
type LaunchOptions struct {
	*GlobalOptions

	// DryRun prints the resolved record and the Compose invocation
	// without writing anything or touching Docker
	DryRun bool

	// Detach returns right after compose up instead of waiting for the
	// server to become ready
	Detach bool

	// Predownload fetches the model weights in a one-off container
	// before bringing the stack up
	Predownload bool
}

// NewLaunchCommand creates the launch command.
//
// The launch command is the host-side configuration resolver: it merges CLI
// flags, the optional defaults file, and built-in fallbacks into one
// finalized record, writes it as the Compose env file, and brings the stack
// up.
//
// Usage:
//
//	vllmctl launch [MODEL] [OPTIONS]
//
// Examples:
//
//	vllmctl launch
//	vllmctl launch mistralai/Mistral-7B-Instruct-v0.2
//	vllmctl launch --architecture gfx1100 --multi-gpu --ui
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for launching the inference stack
func NewLaunchCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &LaunchOptions{
		GlobalOptions: globalOpts,
	}

	v := config.NewLaunchViper()

	cmd := &cobra.Command{
		Use:   "launch [MODEL]",
		Short: "Resolve the launch configuration and start the inference stack",
		Long: `Resolve the launch configuration and start the vLLM inference stack.

Resolution precedence per field, highest first:
  1. CLI flag
  2. defaults file value (dotenv format, same keys as the generated env file)
  3. built-in fallback

The positional MODEL argument is shorthand for --model. Quantization "auto"
is resolved from the model name: -AWQ means awq, -GPTQ means gptq, a generic
-quant marker means awq, anything else means none. This detection is
best-effort; pass --quantization explicitly when the name is misleading.

The resolved record is written atomically to the env file consumed by
Docker Compose, then the stack images are pulled and the stack is brought
up. With --ui the optional web UI service profile is activated.`,
		Example: `  # Launch with all defaults
  vllmctl launch

  # Launch a specific model on RDNA 3
  vllmctl launch TheBloke/Mistral-7B-Instruct-v0.2-AWQ --architecture gfx1100

  # Use every GPU in the box and enable the web UI
  vllmctl launch --multi-gpu --ui

  # Inspect the resolved configuration without side effects
  vllmctl launch --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && !cmd.Flags().Changed("model") {
				v.Set(config.KeyModel, args[0])
			}
			return runLaunch(opts, v)
		},
	}

	cmd.Flags().String("model", config.DefaultModel, "model identifier to serve")
	cmd.Flags().Int("port", config.DefaultPort, "host port for the inference API")
	cmd.Flags().String("quantization", config.DefaultQuantization,
		"quantization scheme: auto, awq, gptq, or none")
	cmd.Flags().String("dtype", config.DefaultDtype,
		"model data type: auto, float16, or bfloat16")
	cmd.Flags().Float64("gpu-memory", config.DefaultGPUMemory,
		"fraction of GPU memory vLLM may use (0.0-1.0]")
	cmd.Flags().Int("max-model-len", config.DefaultMaxModelLen,
		"maximum context length in tokens")
	cmd.Flags().String("architecture", config.DefaultArchitecture,
		fmt.Sprintf("GPU architecture preset: %v", config.SupportedArchitectures()))
	cmd.Flags().Bool("multi-gpu", false, "use all GPUs (tensor/multi-process execution)")
	cmd.Flags().Bool("ui", false, "also start the web UI service")

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"print the resolved configuration and exit without launching")
	cmd.Flags().BoolVarP(&opts.Detach, "detach", "d", false,
		"do not wait for the server to become ready")
	cmd.Flags().BoolVar(&opts.Predownload, "predownload", false,
		"download model weights in a one-off container before starting")

	// BindPFlag errors only on nil flags, which would be a programming
	// error in the block above.
	for _, key := range []string{
		config.KeyModel, config.KeyPort, config.KeyQuantization, config.KeyDtype,
		config.KeyGPUMemory, config.KeyMaxModelLen, config.KeyArchitecture,
		config.KeyMultiGPU, config.KeyUI,
	} {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(key))
	}

	return cmd
}

// runLaunch executes the launch command logic
func runLaunch(opts *LaunchOptions, v *viper.Viper) error {
	settings, err := loadSettings(opts.GlobalOptions)
	if err != nil {
		return err
	}

	// Defaults file sits between CLI flags and built-in fallbacks.
	defaults, err := config.ReadDefaultsFile(settings.DefaultsFile)
	if err != nil {
		return err
	}
	if defaults != nil {
		if err := config.MergeDefaults(v, defaults); err != nil {
			return fmt.Errorf("failed to merge defaults file: %w", err)
		}
	}

	cfg, err := config.Resolve(v)
	if err != nil {
		return err
	}

	var profiles []string
	if cfg.LaunchUI {
		profiles = append(profiles, settings.UIProfile)
	}
	stack := compose.New(settings.ComposeFile, settings.EnvFile, settings.Project, profiles...)

	if opts.DryRun {
		printResolved(cfg, stack)
		return nil
	}

	// Hard preconditions, checked before any state is written.
	if err := gpu.CheckDeviceNodes(); err != nil {
		return err
	}
	if err := compose.CheckCLI(); err != nil {
		return err
	}
	ctx := context.Background()
	if err := compose.PingDaemon(ctx); err != nil {
		return err
	}

	if err := config.WriteEnvFile(settings.EnvFile, cfg.EnvMap(), time.Now()); err != nil {
		return err
	}
	logger.Info("Resolved configuration written to %s", settings.EnvFile)

	fmt.Printf("Launching %s on %s (port %d, quantization %s)\n",
		cfg.Model, cfg.Architecture, cfg.Port, cfg.Quantization)

	if err := stack.Pull(ctx); err != nil {
		return err
	}

	if opts.Predownload {
		fmt.Println("Pre-downloading model weights...")
		if err := stack.Run(ctx, settings.Service,
			"huggingface-cli", "download", cfg.Model); err != nil {
			return err
		}
	}

	if err := stack.Up(ctx, true); err != nil {
		return err
	}

	if opts.Detach {
		fmt.Println("Stack started. Use 'vllmctl ps' to check status.")
		return nil
	}

	endpoint := fmt.Sprintf("http://localhost:%d", cfg.Port)
	fmt.Printf("Waiting for %s to become ready (Ctrl+C to stop waiting)...\n", endpoint)
	waitForReady(ctx, endpoint)
	fmt.Printf("\nInference server is ready at %s/v1\n", endpoint)
	if cfg.LaunchUI {
		fmt.Println("Web UI profile is enabled; see the compose stack for its port.")
	}
	return nil
}

// printResolved renders the resolved record and the exact Compose
// invocation for dry-run mode.
func printResolved(cfg *config.LaunchConfig, stack *compose.Client) {
	fmt.Println("Resolved configuration:")
	env := cfg.EnvMap()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s=%s\n", k, env[k])
	}
	fmt.Println()
	fmt.Println("Compose invocation:")
	fmt.Printf("  docker %v\n", stack.Args("up", "-d"))
}

// waitForReady polls the OpenAI-compatible models endpoint until it
// answers. No timeout is enforced here; cancellation belongs to the
// invoking shell.
func waitForReady(ctx context.Context, endpoint string) {
	httpClient := &http.Client{Timeout: 3 * time.Second}
	checks := 0
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/v1/models", nil)
		if err != nil {
			return
		}
		resp, err := httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		checks++
		fmt.Printf("\rWaiting for server... (%d checks)", checks)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
