// Package uiautomator2 adapts the UIAutomator2 server and adb into a
// core.Device.
package uiautomator2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/uiautomator2"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultInputsPerSecond = 5
	DefaultLongPressMs     = 800
	DefaultPollInterval    = 250 * time.Millisecond
)

// UIA2Client defines the UIAutomator2 operations the driver uses.
// Implemented by uiautomator2.Client. Allows mocking in tests.
type UIA2Client interface {
	Source(ctx context.Context) (string, error)
	WindowSize(ctx context.Context) (int, int, error)

	Click(ctx context.Context, x, y int) error
	LongClick(ctx context.Context, x, y, durationMs int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error

	Back(ctx context.Context) error
	PressKeyCode(ctx context.Context, keyCode int) error
	InputText(ctx context.Context, text string) error

	GetClipboard(ctx context.Context) (string, error)
	SetClipboard(ctx context.Context, text string) error
}

// AppController runs app lifecycle commands over adb.
// Implemented by device.AndroidDevice.
type AppController interface {
	LaunchPackage(ctx context.Context, pkg string) error
	StartActivity(ctx context.Context, pkg, activity string) error
	ForceStop(ctx context.Context, pkg string) error
	CurrentPackage(ctx context.Context) (string, error)
}

// Options tunes a Driver.
type Options struct {
	// InputsPerSecond caps synthetic gestures; bursts of one.
	InputsPerSecond float64
	LongPressMs     int
	PollInterval    time.Duration
}

// Driver implements core.Device using UIAutomator2.
type Driver struct {
	client  UIA2Client
	apps    AppController
	limiter *rate.Limiter
	log     zerolog.Logger

	width, height int
	longPressMs   int
	pollInterval  time.Duration
}

var _ core.Device = (*Driver)(nil)

// New creates a driver and reads the screen size once.
func New(ctx context.Context, client UIA2Client, apps AppController, opts Options, log zerolog.Logger) (*Driver, error) {
	if opts.InputsPerSecond <= 0 {
		opts.InputsPerSecond = DefaultInputsPerSecond
	}
	if opts.LongPressMs <= 0 {
		opts.LongPressMs = DefaultLongPressMs
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	w, h, err := client.WindowSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("read window size: %w", err)
	}

	return &Driver{
		client:       client,
		apps:         apps,
		limiter:      rate.NewLimiter(rate.Limit(opts.InputsPerSecond), 1),
		log:          log,
		width:        w,
		height:       h,
		longPressMs:  opts.LongPressMs,
		pollInterval: opts.PollInterval,
	}, nil
}

// Hierarchy returns the raw page-source XML.
func (d *Driver) Hierarchy(ctx context.Context) (string, error) {
	return d.client.Source(ctx)
}

// Snapshot dumps and parses the current hierarchy.
func (d *Driver) Snapshot(ctx context.Context) ([]core.Element, error) {
	src, err := d.client.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("page source: %w", err)
	}
	root, err := ParsePageSource(src)
	if err != nil {
		return nil, err
	}
	return core.Flatten(root), nil
}

// Find polls the hierarchy until q matches or q.Timeout elapses. A zero
// timeout means a single look.
func (d *Driver) Find(ctx context.Context, q core.Query) []core.Element {
	deadline := time.Now().Add(q.Timeout)
	for {
		elems, err := d.Snapshot(ctx)
		if err != nil {
			d.log.Debug().Err(err).Msg("snapshot failed")
		} else if found := core.Filter(elems, q); len(found) > 0 {
			return found
		}

		if !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d.pollInterval):
		}
	}
}

func (d *Driver) pace(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

func (d *Driver) Click(ctx context.Context, x, y int) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	d.log.Debug().Int("x", x).Int("y", y).Msg("click")
	return d.client.Click(ctx, x, y)
}

func (d *Driver) LongClick(ctx context.Context, x, y int) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	d.log.Debug().Int("x", x).Int("y", y).Msg("long click")
	return d.client.LongClick(ctx, x, y, d.longPressMs)
}

func (d *Driver) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	x1, y1 = d.clamp(x1, y1)
	x2, y2 = d.clamp(x2, y2)
	d.log.Debug().Int("x1", x1).Int("y1", y1).Int("x2", x2).Int("y2", y2).Msg("swipe")
	return d.client.Swipe(ctx, x1, y1, x2, y2, durationMs)
}

// clamp keeps a gesture point on screen.
func (d *Driver) clamp(x, y int) (int, int) {
	x = max(0, min(x, d.width-1))
	y = max(0, min(y, d.height-1))
	return x, y
}

func (d *Driver) Back(ctx context.Context) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	return d.client.Back(ctx)
}

func (d *Driver) Home(ctx context.Context) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	return d.client.PressKeyCode(ctx, uiautomator2.KeyCodeHome)
}

func (d *Driver) ScreenSize() (int, int) {
	return d.width, d.height
}

func (d *Driver) InputText(ctx context.Context, text string) error {
	if err := d.pace(ctx); err != nil {
		return err
	}
	return d.client.InputText(ctx, text)
}

func (d *Driver) GetClipboard(ctx context.Context) (string, error) {
	return d.client.GetClipboard(ctx)
}

func (d *Driver) SetClipboard(ctx context.Context, text string) error {
	return d.client.SetClipboard(ctx, text)
}

func (d *Driver) LaunchPackage(ctx context.Context, pkg string) error {
	if d.apps == nil {
		return fmt.Errorf("no adb device")
	}
	return d.apps.LaunchPackage(ctx, pkg)
}

// StartActivity accepts "pkg/activity" or a bare package name.
func (d *Driver) StartActivity(ctx context.Context, component string) error {
	if d.apps == nil {
		return fmt.Errorf("no adb device")
	}
	pkg, activity, _ := strings.Cut(component, "/")
	return d.apps.StartActivity(ctx, pkg, activity)
}

func (d *Driver) ForceStop(ctx context.Context, pkg string) error {
	if d.apps == nil {
		return fmt.Errorf("no adb device")
	}
	return d.apps.ForceStop(ctx, pkg)
}

func (d *Driver) CurrentPackage(ctx context.Context) (string, error) {
	if d.apps == nil {
		return "", fmt.Errorf("no adb device")
	}
	return d.apps.CurrentPackage(ctx)
}
