package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/compose"
)

// NewPullCommand creates the pull command.
//
// The pull command fetches the stack's container images without starting
// anything, so a later launch does not block on a large download.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for pulling stack images
func NewPullCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull the inference stack's container images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(globalOpts)
			if err != nil {
				return err
			}

			if err := compose.CheckCLI(); err != nil {
				return err
			}

			stack := compose.New(settings.ComposeFile, settings.EnvFile, settings.Project)
			return stack.Pull(context.Background())
		},
	}

	return cmd
}
