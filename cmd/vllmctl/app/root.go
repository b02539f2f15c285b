// Package app provides the command-line interface implementation for
// vllmctl.
//
// This package contains all CLI commands and their implementations,
// following the Kubernetes CLI architecture pattern with cobra. Commands
// are organized hierarchically with a root command and subcommands.
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/config"
	"github.com/strixlabs/vllmctl/internal/logger"
)

const (
	// cliName is the name of the CLI application
	cliName = "vllmctl"

	// cliDescription is the short description shown in help text
	cliDescription = "vllmctl - vLLM inference on AMD GPUs"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	// SettingsFile is an alternate host settings file path
	SettingsFile string

	// Verbose enables verbose output
	Verbose bool
}

// NewVllmctlCommand creates the root vllmctl command with all subcommands.
//
// The root command provides the main entry point for the CLI. It sets up
// global flags, initializes logging, and registers all subcommands.
//
// Returns:
//   - A configured cobra.Command ready for execution
func NewVllmctlCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `vllmctl launches a pre-built ROCm vLLM inference container on AMD GPUs.

It resolves a small set of launch options (model, port, quantization, dtype,
GPU memory fraction, context length, GPU architecture preset) into the
environment consumed by the container stack, writes the generated env file,
and drives Docker Compose to bring the stack up.

Inside the container the same binary acts as the entrypoint: it validates
the propagated environment and execs the vLLM API server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(opts.Verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.SettingsFile, "settings", "",
		fmt.Sprintf("host settings file (default: %s)", config.SettingsPath()))
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output")

	cmd.AddCommand(
		NewLaunchCommand(opts),
		NewEntrypointCommand(opts),
		NewDownCommand(opts),
		NewPsCommand(opts),
		NewPullCommand(opts),
		NewDevicesCommand(opts),
		NewChatCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}

// loadSettings loads the host settings honoring the --settings flag.
func loadSettings(opts *GlobalOptions) (*config.Settings, error) {
	return config.LoadSettings(opts.SettingsFile)
}
