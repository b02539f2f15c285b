package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/compose"
)

// NewDownCommand creates the down command.
//
// The down command stops and removes the inference stack's containers.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for stopping the stack
func NewDownCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the inference stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(globalOpts)
			if err != nil {
				return err
			}

			stack := compose.New(settings.ComposeFile, settings.EnvFile, settings.Project)
			if err := stack.Down(context.Background()); err != nil {
				return err
			}

			fmt.Println("Inference stack stopped.")
			return nil
		},
	}

	return cmd
}
