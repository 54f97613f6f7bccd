// Package coretest provides a scripted in-memory core.Device for tests.
package coretest

import (
	"context"
	"fmt"
	"sync"

	"github.com/devicelab-dev/cartpilot/pkg/core"
)

// SwipeCall records one Swipe invocation.
type SwipeCall struct {
	X1, Y1, X2, Y2 int
	DurationMs     int
}

// Left reports whether the finger moved right-to-left.
func (s SwipeCall) Left() bool { return s.X2 < s.X1 }

// Right reports whether the finger moved left-to-right.
func (s SwipeCall) Right() bool { return s.X2 > s.X1 }

// FakeDevice renders its screen from a callback so tests can model UI state
// that changes in response to input.
type FakeDevice struct {
	mu sync.Mutex

	Width, Height int

	// Render builds the current hierarchy. Called on every Snapshot/Find.
	Render func() *core.Node

	OnClick func(x, y int)
	OnSwipe func(s SwipeCall)
	OnBack  func()
	OnHome  func()
	// OnLaunch is called for LaunchPackage and StartActivity.
	OnLaunch func(target string)

	Clicks    [][2]int
	LongPress [][2]int
	Swipes    []SwipeCall
	Backs     int
	Homes     int
	Typed     []string
	Launches  []string
	Stopped   []string
	// Calls is an ordered log of every input, e.g. "click 10,20".
	Calls []string

	// SwipeErr, when set, is returned by every Swipe.
	SwipeErr error

	Clip    string
	Package string
	// PackageReads counts CurrentPackage calls.
	PackageReads int
}

// New returns a 1080x2400 fake device rendering render.
func New(render func() *core.Node) *FakeDevice {
	return &FakeDevice{Width: 1080, Height: 2400, Render: render}
}

// Static returns a fake device that always shows root.
func Static(root *core.Node) *FakeDevice {
	return New(func() *core.Node { return root })
}

func (f *FakeDevice) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *FakeDevice) Snapshot(ctx context.Context) ([]core.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Render == nil {
		return nil, nil
	}
	return core.Flatten(f.Render()), nil
}

func (f *FakeDevice) Find(ctx context.Context, q core.Query) []core.Element {
	elems, err := f.Snapshot(ctx)
	if err != nil {
		return nil
	}
	return core.Filter(elems, q)
}

func (f *FakeDevice) Click(ctx context.Context, x, y int) error {
	f.mu.Lock()
	f.Clicks = append(f.Clicks, [2]int{x, y})
	f.record(fmt.Sprintf("click %d,%d", x, y))
	cb := f.OnClick
	f.mu.Unlock()
	if cb != nil {
		cb(x, y)
	}
	return nil
}

func (f *FakeDevice) LongClick(ctx context.Context, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LongPress = append(f.LongPress, [2]int{x, y})
	f.record(fmt.Sprintf("longclick %d,%d", x, y))
	return nil
}

func (f *FakeDevice) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	call := SwipeCall{X1: x1, Y1: y1, X2: x2, Y2: y2, DurationMs: durationMs}
	f.mu.Lock()
	f.Swipes = append(f.Swipes, call)
	f.record(fmt.Sprintf("swipe %d,%d->%d,%d", x1, y1, x2, y2))
	cb, err := f.OnSwipe, f.SwipeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if cb != nil {
		cb(call)
	}
	return nil
}

func (f *FakeDevice) Back(ctx context.Context) error {
	f.mu.Lock()
	f.Backs++
	f.record("back")
	cb := f.OnBack
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *FakeDevice) Home(ctx context.Context) error {
	f.mu.Lock()
	f.Homes++
	f.record("home")
	cb := f.OnHome
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (f *FakeDevice) ScreenSize() (int, int) { return f.Width, f.Height }

func (f *FakeDevice) InputText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed = append(f.Typed, text)
	f.record("type " + text)
	return nil
}

func (f *FakeDevice) GetClipboard(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Clip, nil
}

func (f *FakeDevice) SetClipboard(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clip = text
	return nil
}

func (f *FakeDevice) LaunchPackage(ctx context.Context, pkg string) error {
	return f.launch("launch " + pkg)
}

func (f *FakeDevice) StartActivity(ctx context.Context, component string) error {
	return f.launch("start " + component)
}

func (f *FakeDevice) launch(target string) error {
	f.mu.Lock()
	f.Launches = append(f.Launches, target)
	f.record(target)
	cb := f.OnLaunch
	f.mu.Unlock()
	if cb != nil {
		cb(target)
	}
	return nil
}

func (f *FakeDevice) ForceStop(ctx context.Context, pkg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stopped = append(f.Stopped, pkg)
	f.record("stop " + pkg)
	if f.Package == pkg {
		f.Package = ""
	}
	return nil
}

func (f *FakeDevice) CurrentPackage(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PackageReads++
	return f.Package, nil
}

// SetClip replaces the clipboard without recording a call.
func (f *FakeDevice) SetClip(text string) {
	f.mu.Lock()
	f.Clip = text
	f.mu.Unlock()
}

var _ core.Device = (*FakeDevice)(nil)
