package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/compose"
)

// NewPsCommand creates the ps command.
//
// The ps command lists the stack's containers (running and stopped) by
// querying the Docker daemon for containers labeled with the Compose
// project name.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for listing stack containers
func NewPsCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List the inference stack's containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(globalOpts)
			if err != nil {
				return err
			}

			containers, err := compose.ListStackContainers(context.Background(), settings.Project)
			if err != nil {
				return err
			}

			if len(containers) == 0 {
				fmt.Println("No containers found. Use 'vllmctl launch' to start the stack.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATE\tSTATUS\tIMAGE\tCONTAINER ID")
			for _, c := range containers {
				id := c.ID
				if len(id) > 12 {
					id = id[:12]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					c.Service, c.State, c.Status, c.Image, id)
			}
			return w.Flush()
		},
	}

	return cmd
}
