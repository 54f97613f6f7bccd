package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/device"
	uia2 "github.com/devicelab-dev/cartpilot/pkg/driver/uiautomator2"
	"github.com/devicelab-dev/cartpilot/pkg/logger"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/uiautomator2"
)

// env is the configuration and logging shared by every command.
type env struct {
	path    string
	cfg     *config.Config
	live    *config.Live
	log     zerolog.Logger
	watcher *config.Watcher
}

// setup loads the configuration, applies flag overrides and initializes the
// logger.
func setup(c *cli.Context) (*env, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Console:    true,
		NoColor:    cfg.Log.NoColor,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	return &env{path: path, cfg: cfg, live: config.NewLive(cfg), log: logger.For("cli")}, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("device") {
		cfg.Device.Serial = c.String("device")
	}
	if c.IsSet("storage-dir") {
		cfg.Storage.Dir = c.String("storage-dir")
	}
	if c.IsSet("order-check-url") {
		cfg.API.OrderCheckURL = c.String("order-check-url")
	}
	if c.IsSet("user-name") {
		cfg.API.UserName = c.String("user-name")
	}
	if c.IsSet("driver-host-port") {
		cfg.Device.HostPort = c.Int("driver-host-port")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	if c.Bool("no-ansi") {
		cfg.Log.NoColor = true
	}
}

// watch hot-reloads keyword lists and labels while a session runs.
func (e *env) watch() {
	if e.path == "" {
		return
	}
	w := config.NewWatcher(e.path, e.live, logger.For("config"))
	if err := w.Start(); err != nil {
		e.log.Warn().Err(err).Msg("config hot reload disabled")
		return
	}
	e.watcher = w
}

func (e *env) close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	_ = logger.Close()
}

// serials splits the device setting into serials. An empty setting yields
// one empty serial, meaning the first ready device.
func (e *env) serials() []string {
	var out []string
	for _, s := range strings.Split(e.cfg.Device.Serial, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// conn is a live UIAutomator2 connection to one device.
type conn struct {
	info   report.Device
	driver *uia2.Driver
	close  func()
}

// connect starts or reuses the UIAutomator2 server on serial and opens a
// session. hostPort 0 picks a free port.
func connect(ctx context.Context, cfg *config.Config, serial string, hostPort int, log zerolog.Logger) (*conn, error) {
	dev, err := device.Open(ctx, serial)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	opts := device.DefaultServerOptions()
	opts.HostPort = hostPort
	if cfg.Device.ServerPort > 0 {
		opts.DevicePort = cfg.Device.ServerPort
	}
	opts.LockDir = cfg.Storage.Dir
	srv, err := dev.StartServer(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("start uiautomator2 server on %s: %w", dev.Serial(), err)
	}

	client := uiautomator2.NewClientURL(srv.URL())
	if err := client.CreateSession(ctx, uiautomator2.Capabilities{
		PlatformName:         "Android",
		DeviceName:           dev.Serial(),
		DisableIdLocatorAuto: true,
	}); err != nil {
		srv.Stop()
		return nil, fmt.Errorf("create uiautomator2 session: %w", err)
	}

	drv, err := uia2.New(ctx, client, dev, uia2.Options{InputsPerSecond: cfg.Device.InputsPerSecond},
		log.With().Str("device", dev.Serial()).Logger())
	if err != nil {
		_ = client.Close()
		srv.Stop()
		return nil, err
	}

	info := report.Device{ID: dev.Serial(), Platform: "android"}
	if model, err := dev.Shell(ctx, "getprop", "ro.product.model"); err == nil {
		info.Name = strings.TrimSpace(model)
	}
	log.Info().Str("device", info.ID).Str("model", info.Name).Int("port", srv.HostPort).Msg("device connected")

	return &conn{
		info:   info,
		driver: drv,
		close: func() {
			_ = client.Close()
			srv.Stop()
		},
	}, nil
}
