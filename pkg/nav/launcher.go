package nav

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

var errIconNotFound = errors.New("launcher icon not found")

// Launcher brings the shopping app to the foreground.
type Launcher struct {
	dev   core.Device
	live  *config.Live
	sleep session.Sleeper
	log   zerolog.Logger
}

// NewLauncher returns a launcher for the configured app.
func NewLauncher(dev core.Device, live *config.Live, sleep session.Sleeper, log zerolog.Logger) *Launcher {
	return &Launcher{dev: dev, live: live, sleep: sleep, log: log}
}

// Launch tries launch-by-package, launch-by-display-name and an explicit
// intent in that order, confirming each through the foreground package.
func (l *Launcher) Launch(ctx context.Context) bool {
	app := l.live.Get().App
	name, ok := TryInOrder(ctx, l.log,
		Strategy{Name: "package", Run: l.confirmed(func(ctx context.Context) error {
			return l.dev.LaunchPackage(ctx, app.Package)
		})},
		Strategy{Name: "display-name", Run: l.confirmed(l.launchByName)},
		Strategy{Name: "intent", Run: l.confirmed(func(ctx context.Context) error {
			component := app.Activity
			if component == "" {
				component = app.Package
			}
			return l.dev.StartActivity(ctx, component)
		})},
	)
	if !ok {
		l.log.Warn().Str("package", app.Package).Msg("app launch failed")
		return false
	}
	l.log.Info().Str("package", app.Package).Str("via", name).Msg("app launched")
	return true
}

// Restart force-stops the app and launches it again.
func (l *Launcher) Restart(ctx context.Context) bool {
	cfg := l.live.Get()
	if err := l.dev.ForceStop(ctx, cfg.App.Package); err != nil {
		l.log.Warn().Err(err).Msg("force-stop failed")
	}
	if !l.sleep.Sleep(ctx, cfg.Timing.AfterBack.D()) {
		return false
	}
	return l.Launch(ctx)
}

func (l *Launcher) confirmed(launch func(ctx context.Context) error) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		if err := launch(ctx); err != nil {
			l.log.Debug().Err(err).Msg("launch attempt failed")
			return false
		}
		if !l.sleep.Sleep(ctx, l.live.Get().Timing.LaunchWait.D()) {
			return false
		}
		return l.InForeground(ctx)
	}
}

// launchByName goes to the launcher and taps the app's icon label.
func (l *Launcher) launchByName(ctx context.Context) error {
	cfg := l.live.Get()
	if err := l.dev.Home(ctx); err != nil {
		return err
	}
	if !l.sleep.Sleep(ctx, cfg.Timing.AfterBack.D()) {
		return session.ErrStopped
	}
	q := core.ByText(cfg.App.DisplayName, core.Exact).WithTimeout(cfg.Timing.FindTimeout.D())
	found := core.FindAny(ctx, l.dev, q, core.ByDesc(cfg.App.DisplayName, core.Exact))
	if len(found) == 0 {
		return errIconNotFound
	}
	return core.ClickElement(ctx, l.dev, found[0])
}

// InForeground polls the foreground package a bounded number of times,
// then falls back to looking for a home-page label.
func (l *Launcher) InForeground(ctx context.Context) bool {
	cfg := l.live.Get()
	for i := 0; i < cfg.Timing.ForegroundRetries; i++ {
		pkg, err := l.dev.CurrentPackage(ctx)
		if err == nil && strings.TrimSpace(pkg) == cfg.App.Package {
			return true
		}
		if err == nil && pkg != "" {
			l.log.Debug().Str("foreground", pkg).Msg("other app in foreground")
		}
		if !l.sleep.Sleep(ctx, cfg.Timing.ForegroundPoll.D()) {
			return false
		}
	}

	for _, label := range cfg.Labels.HomeTab {
		if core.Exists(ctx, l.dev, core.ByText(label, core.Exact)) {
			l.log.Debug().Msg("foreground confirmed by home label")
			return true
		}
	}
	return false
}
