// Package gpu provides AMD GPU presence checks for the launcher.
//
// The launcher never talks to the GPU driver directly; it only verifies
// that the ROCm device nodes exist before any container is started, and
// can enumerate AMD GPUs from PCI sysfs for diagnostics.
package gpu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DeviceKFD is the ROCm compute device node.
	DeviceKFD = "/dev/kfd"

	// DeviceDRI is the DRM render node directory.
	DeviceDRI = "/dev/dri"

	// amdVendorID is the PCI vendor ID for AMD/ATI.
	amdVendorID = "0x1002"

	// displayClassPrefix matches PCI display controller classes
	// (0x030000 VGA, 0x038000 other display).
	displayClassPrefix = "0x03"
)

// ErrDeviceNotFound indicates the ROCm device nodes are missing, meaning no
// usable amdgpu driver is loaded on the host.
var ErrDeviceNotFound = errors.New("GPU device not found")

// CheckDeviceNodes verifies that /dev/kfd and /dev/dri exist. This is the
// hard GPU precondition: it runs before the env file is written and before
// any container is launched.
//
// Returns:
//   - nil when both device nodes are present
//   - ErrDeviceNotFound (wrapped) naming the missing node otherwise
func CheckDeviceNodes() error {
	return checkDeviceNodes(DeviceKFD, DeviceDRI)
}

func checkDeviceNodes(kfd, dri string) error {
	if _, err := os.Stat(kfd); err != nil {
		return fmt.Errorf("%w: %s is missing; is the amdgpu driver loaded?", ErrDeviceNotFound, kfd)
	}
	if _, err := os.Stat(dri); err != nil {
		return fmt.Errorf("%w: %s is missing; is the amdgpu driver loaded?", ErrDeviceNotFound, dri)
	}
	return nil
}

// Device represents an AMD GPU found on the PCI bus.
type Device struct {
	// BusAddress is the PCI bus address (e.g., "0000:03:00.0").
	BusAddress string `json:"bus_address"`

	// DeviceID is the PCI device ID (e.g., "0x7550").
	DeviceID string `json:"device_id"`

	// Class is the PCI device class.
	Class string `json:"class"`
}

// DetectDevices scans PCI sysfs for AMD display controllers.
//
// This reads /sys/bus/pci/devices, the standard location on Linux, and
// keeps entries whose vendor is AMD and whose class is a display
// controller. Individual unreadable entries are skipped.
//
// Returns:
//   - Slice of detected AMD GPUs (may be empty)
//   - Error if the sysfs tree itself cannot be read
func DetectDevices() ([]Device, error) {
	return detectDevices("/sys/bus/pci/devices")
}

func detectDevices(pciPath string) ([]Device, error) {
	entries, err := os.ReadDir(pciPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCI devices from %s: %w", pciPath, err)
	}

	var devices []Device
	for _, entry := range entries {
		devicePath := filepath.Join(pciPath, entry.Name())

		vendor, err := readSysfsValue(filepath.Join(devicePath, "vendor"))
		if err != nil || vendor != amdVendorID {
			continue
		}

		class, err := readSysfsValue(filepath.Join(devicePath, "class"))
		if err != nil || !strings.HasPrefix(class, displayClassPrefix) {
			continue
		}

		deviceID, err := readSysfsValue(filepath.Join(devicePath, "device"))
		if err != nil {
			continue
		}

		devices = append(devices, Device{
			BusAddress: entry.Name(),
			DeviceID:   deviceID,
			Class:      class,
		})
	}

	return devices, nil
}

// readSysfsValue reads a single-line sysfs attribute.
func readSysfsValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
