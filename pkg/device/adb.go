// Package device wraps adb for one Android device: discovery, shell,
// port forwarding, app lifecycle and the UIAutomator2 server bootstrap.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// commandRunner executes a binary and returns its combined stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", filepath.Base(name), strings.Join(args, " "), err, msg)
	}
	return stdout.Bytes(), nil
}

// AndroidDevice is a single device addressed by serial.
type AndroidDevice struct {
	serial  string
	adbPath string
	run     commandRunner
}

// New returns a device handle for serial. An empty serial lets adb pick
// the only attached device.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	return &AndroidDevice{serial: serial, adbPath: adbPath, run: execRunner}, nil
}

// Serial returns the device serial.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

func (d *AndroidDevice) adb(ctx context.Context, args ...string) ([]byte, error) {
	if d.serial != "" {
		args = append([]string{"-s", d.serial}, args...)
	}
	return d.run(ctx, d.adbPath, args...)
}

// Shell runs a shell command on the device and returns trimmed stdout.
func (d *AndroidDevice) Shell(ctx context.Context, args ...string) (string, error) {
	out, err := d.adb(ctx, append([]string{"shell"}, args...)...)
	return strings.TrimSpace(string(out)), err
}

// Forward maps a host TCP port onto a device TCP port.
func (d *AndroidDevice) Forward(ctx context.Context, hostPort, devicePort int) error {
	_, err := d.adb(ctx, "forward", fmt.Sprintf("tcp:%d", hostPort), fmt.Sprintf("tcp:%d", devicePort))
	return err
}

// RemoveForward drops a forward created by Forward.
func (d *AndroidDevice) RemoveForward(ctx context.Context, hostPort int) error {
	_, err := d.adb(ctx, "forward", "--remove", fmt.Sprintf("tcp:%d", hostPort))
	return err
}

// Install installs an APK, replacing any existing copy.
func (d *AndroidDevice) Install(ctx context.Context, apkPath string) error {
	_, err := d.adb(ctx, "install", "-r", "-g", apkPath)
	return err
}

// findADB locates adb on PATH or under the Android SDK.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}

	name := "adb"
	if runtime.GOOS == "windows" {
		name = "adb.exe"
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		root := os.Getenv(env)
		if root == "" {
			continue
		}
		candidate := filepath.Join(root, "platform-tools", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("adb not found in PATH, ANDROID_HOME or ANDROID_SDK_ROOT")
}
