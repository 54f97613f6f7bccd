package coretest

import (
	"context"
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
)

// Launcher is the screen name shown after Home or before the app starts.
const Launcher = "launcher"

// App simulates a multi-screen application on a FakeDevice. Taps are
// resolved to the smallest labelled element under the finger and looked up
// in a per-screen transition table.
type App struct {
	*FakeDevice

	Pkg         string
	DisplayName string
	Current     string
	Start       string

	screens map[string]func() *core.Node
	taps    map[string]map[string]string
	backs   map[string]string

	// Tapped records "screen:label" for every resolved tap.
	Tapped []string
	// OnTap runs after a tap is resolved and may change Current.
	OnTap func(screen, label string)
}

// NewApp returns an app in the launcher; launching it shows start.
func NewApp(pkg, displayName, start string) *App {
	a := &App{
		Pkg:         pkg,
		DisplayName: displayName,
		Current:     Launcher,
		Start:       start,
		screens:     map[string]func() *core.Node{},
		taps:        map[string]map[string]string{},
		backs:       map[string]string{},
	}
	a.FakeDevice = New(a.render)
	a.FakeDevice.Package = "com.android.launcher"
	a.Screen(Launcher, func() *core.Node {
		return Root(Button(a.DisplayName, 100, 1000, 200, 80))
	})
	a.Tap(Launcher, displayName, start)
	a.FakeDevice.OnClick = a.click
	a.FakeDevice.OnBack = func() {
		if to, ok := a.backs[a.Current]; ok {
			a.Current = to
		}
	}
	a.FakeDevice.OnHome = func() { a.goLauncher() }
	a.FakeDevice.OnLaunch = func(target string) {
		if target == "launch "+a.Pkg || strings.HasPrefix(target, "start "+a.Pkg) {
			a.Current = a.Start
			a.FakeDevice.Package = a.Pkg
		}
	}
	return a
}

func (a *App) goLauncher() {
	a.Current = Launcher
	a.FakeDevice.Package = "com.android.launcher"
}

// Screen registers a renderer for name.
func (a *App) Screen(name string, render func() *core.Node) *App {
	a.screens[name] = render
	return a
}

// Tap makes tapping label on screen from show screen to.
func (a *App) Tap(from, label, to string) *App {
	if a.taps[from] == nil {
		a.taps[from] = map[string]string{}
	}
	a.taps[from][label] = to
	return a
}

// BackTo makes back on from show screen to.
func (a *App) BackTo(from, to string) *App {
	a.backs[from] = to
	return a
}

// ForceStop kills the app and returns to the launcher.
func (a *App) ForceStop(ctx context.Context, pkg string) error {
	_ = a.FakeDevice.ForceStop(ctx, pkg)
	if pkg == a.Pkg {
		a.goLauncher()
	}
	return nil
}

func (a *App) render() *core.Node {
	if r, ok := a.screens[a.Current]; ok {
		return r()
	}
	return Root()
}

// LabelAt returns the label of the smallest labelled element under (x, y).
func (a *App) LabelAt(x, y int) string {
	var best core.Element
	for _, e := range core.Flatten(a.render()) {
		if core.TextOf(e) == "" || !e.Bounds().Contains(x, y) {
			continue
		}
		if best == nil || e.Bounds().Area() < best.Bounds().Area() {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return core.TextOf(best)
}

func (a *App) click(x, y int) {
	label := a.LabelAt(x, y)
	screen := a.Current
	a.Tapped = append(a.Tapped, screen+":"+label)
	if to, ok := a.taps[screen][label]; ok {
		a.Current = to
		if screen == Launcher {
			a.FakeDevice.Package = a.Pkg
		}
	}
	if a.OnTap != nil {
		a.OnTap(screen, label)
	}
}

var _ core.Device = (*App)(nil)
