package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the vllmctl version, overridden at build time via
// -ldflags "-X github.com/strixlabs/vllmctl/cmd/vllmctl/app.Version=...".
var Version = "v0.2.0-dev"

// NewVersionCommand creates the version command.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command printing version information
func NewVersionCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print vllmctl version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vllmctl %s (%s/%s, %s)\n",
				Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}

	return cmd
}
