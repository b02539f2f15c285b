package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/gpu"
)

// NewDevicesCommand creates the devices command.
//
// The devices command reports the GPU preconditions the launcher checks
// before starting a container: the ROCm device nodes and the AMD GPUs
// visible on the PCI bus.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for inspecting GPU availability
func NewDevicesCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show detected AMD GPUs and ROCm device nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := gpu.CheckDeviceNodes(); err != nil {
				fmt.Printf("Device nodes: MISSING (%v)\n", err)
			} else {
				fmt.Printf("Device nodes: %s and %s present\n", gpu.DeviceKFD, gpu.DeviceDRI)
			}

			devices, err := gpu.DetectDevices()
			if err != nil {
				return err
			}

			if len(devices) == 0 {
				fmt.Println("No AMD GPUs found on the PCI bus.")
				return nil
			}

			fmt.Printf("AMD GPUs (%d):\n", len(devices))
			for i, d := range devices {
				fmt.Printf("  [%d] %s device=%s class=%s\n", i, d.BusAddress, d.DeviceID, d.Class)
			}
			return nil
		},
	}

	return cmd
}
