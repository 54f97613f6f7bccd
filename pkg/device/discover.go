package device

import (
	"context"
	"errors"
	"strings"
)

// ErrNoDevices is returned when no devices are connected.
var ErrNoDevices = errors.New("no Android devices connected")

// ConnectedDevice represents a device found via ADB.
type ConnectedDevice struct {
	Serial string
	State  string // "device", "offline", "unauthorized"
	Type   string // "emulator" or "device"
}

// Ready reports whether adb can talk to the device.
func (c ConnectedDevice) Ready() bool {
	return c.State == "device"
}

// ListDevices returns all connected Android devices.
func ListDevices(ctx context.Context) ([]ConnectedDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}

	out, err := execRunner(ctx, adbPath, "devices")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(string(out)), nil
}

// parseDeviceList parses output of "adb devices".
func parseDeviceList(output string) []ConnectedDevice {
	var devices []ConnectedDevice
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		d := ConnectedDevice{
			Serial: parts[0],
			State:  parts[1],
			Type:   "device",
		}
		if IsEmulator(d.Serial) {
			d.Type = "emulator"
		}
		devices = append(devices, d)
	}
	return devices
}

// IsEmulator reports whether serial names a local emulator ("emulator-5554").
func IsEmulator(serial string) bool {
	port, ok := strings.CutPrefix(serial, "emulator-")
	if !ok || port == "" {
		return false
	}
	for _, r := range port {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// pickSerial returns want if it is attached and ready, or the first ready
// device when want is empty.
func pickSerial(devices []ConnectedDevice, want string) (string, error) {
	for _, d := range devices {
		if !d.Ready() {
			continue
		}
		if want == "" || d.Serial == want {
			return d.Serial, nil
		}
	}
	return "", ErrNoDevices
}

// Open resolves serial against the attached devices and returns a handle.
// An empty serial selects the first ready device.
func Open(ctx context.Context, serial string) (*AndroidDevice, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	chosen, err := pickSerial(devices, serial)
	if err != nil {
		return nil, err
	}
	return New(chosen)
}
