package device

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// UIAutomator2 server packages.
const (
	ServerPackage     = "io.appium.uiautomator2.server"
	ServerTestPackage = "io.appium.uiautomator2.server.test"
	serverRunner      = ServerTestPackage + "/androidx.test.runner.AndroidJUnitRunner"
)

// ServerOptions configures StartServer.
type ServerOptions struct {
	HostPort     int
	DevicePort   int
	APKDir       string // optional; server APKs are installed from here when missing
	LockDir      string // directory for the owner pid file
	StartTimeout time.Duration
}

// DefaultServerOptions returns the standard ports and timeout.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		DevicePort:   6790,
		StartTimeout: 30 * time.Second,
	}
}

// findFreePort returns the first port in [start, end] nothing listens on.
func findFreePort(start, end int) (int, error) {
	for port := start; port <= end; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// Server is a running UIAutomator2 instrumentation reachable on HostPort.
type Server struct {
	HostPort int
	dev      *AndroidDevice
	cmd      *exec.Cmd
	lockPath string
}

// URL returns the base URL of the forwarded server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.HostPort)
}

// StartServer makes a UIAutomator2 server reachable on opts.HostPort,
// reusing one that already answers /status.
func (d *AndroidDevice) StartServer(ctx context.Context, opts ServerOptions) (*Server, error) {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 30 * time.Second
	}
	if opts.DevicePort == 0 {
		opts.DevicePort = 6790
	}
	if opts.HostPort == 0 {
		port, err := findFreePort(6001, 7001)
		if err != nil {
			return nil, err
		}
		opts.HostPort = port
	}
	lockPath := filepath.Join(opts.LockDir, fmt.Sprintf("uia2-%s.lock", sanitizeSerial(d.serial)))
	srv := &Server{HostPort: opts.HostPort, dev: d, lockPath: lockPath}

	if err := d.Forward(ctx, opts.HostPort, opts.DevicePort); err != nil {
		return nil, fmt.Errorf("forward port: %w", err)
	}
	if checkHealthViaTCP(opts.HostPort) {
		return srv, nil
	}
	if IsOwnerAlive(lockPath) {
		return nil, fmt.Errorf("uiautomator2 server for %s is owned by another process", d.serial)
	}

	if opts.APKDir != "" {
		if err := d.ensureServerInstalled(ctx, opts.APKDir); err != nil {
			return nil, err
		}
	}

	args := []string{"shell", "am", "instrument", "-w", "-e", "disableAnalytics", "true", serverRunner}
	if d.serial != "" {
		args = append([]string{"-s", d.serial}, args...)
	}
	cmd := exec.Command(d.adbPath, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start instrumentation: %w", err)
	}
	srv.cmd = cmd

	if err := writePID(lockPath); err != nil {
		srv.Stop()
		return nil, err
	}

	deadline := time.Now().Add(opts.StartTimeout)
	for time.Now().Before(deadline) {
		if checkHealthViaTCP(opts.HostPort) {
			return srv, nil
		}
		select {
		case <-ctx.Done():
			srv.Stop()
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	srv.Stop()
	return nil, fmt.Errorf("uiautomator2 server did not start within %s", opts.StartTimeout)
}

// Stop ends the instrumentation started by StartServer and releases the lock.
func (s *Server) Stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
		s.cmd = nil
	}
	if s.lockPath != "" {
		_ = os.Remove(pidPathFor(s.lockPath))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.dev.RemoveForward(ctx, s.HostPort)
}

func (d *AndroidDevice) ensureServerInstalled(ctx context.Context, dir string) error {
	for _, spec := range []struct{ pkg, pattern string }{
		{ServerPackage, "appium-uiautomator2-server-v*.apk"},
		{ServerTestPackage, "appium-uiautomator2-server-debug-androidTest*.apk"},
	} {
		ok, err := d.IsInstalled(ctx, spec.pkg)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		apk, err := findAPK(dir, spec.pattern)
		if err != nil {
			return err
		}
		if err := d.Install(ctx, apk); err != nil {
			return fmt.Errorf("install %s: %w", filepath.Base(apk), err)
		}
	}
	return nil
}

// findAPK returns the first file in dir matching pattern.
func findAPK(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no APK matching %s in %s", pattern, dir)
	}
	return matches[0], nil
}

// pidPathFor returns the pid file that records who owns lockPath.
func pidPathFor(lockPath string) string {
	ext := filepath.Ext(lockPath)
	return strings.TrimSuffix(lockPath, ext) + ".pid"
}

func writePID(lockPath string) error {
	if dir := filepath.Dir(lockPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(pidPathFor(lockPath), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// IsOwnerAlive reports whether the process recorded for lockPath still runs.
func IsOwnerAlive(lockPath string) bool {
	data, err := os.ReadFile(pidPathFor(lockPath))
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// checkHealthViaTCP reports whether a server answers /status on port.
func checkHealthViaTCP(port int) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/status", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func sanitizeSerial(serial string) string {
	if serial == "" {
		return "default"
	}
	return strings.NewReplacer(":", "_", "/", "_").Replace(serial)
}
