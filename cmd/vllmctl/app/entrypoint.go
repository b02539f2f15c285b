package app

import (
	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/entrypoint"
)

// NewEntrypointCommand creates the entrypoint command.
//
// This command runs inside the inference container as its ENTRYPOINT. It
// validates the environment propagated by the launch command, applies the
// optional gfx1201 aiter patch, and execs the vLLM API server, replacing
// this process. It is hidden from help output because it is not meant to
// be invoked on the host.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for container startup
func NewEntrypointCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "entrypoint",
		Short:  "Validate the container environment and exec the inference server",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only returns on failure; on success the process image
			// has been replaced by the inference server.
			return entrypoint.Run()
		},
	}

	return cmd
}
