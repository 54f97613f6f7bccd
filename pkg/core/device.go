package core

import "context"

// Screen queries the accessibility tree of whatever is currently displayed.
type Screen interface {
	// Snapshot returns every node of a fresh hierarchy dump in document order.
	Snapshot(ctx context.Context) ([]Element, error)
	// Find returns the elements matching q, polling until q.Timeout. It
	// returns an empty slice on timeout instead of an error.
	Find(ctx context.Context, q Query) []Element
}

// Gestures synthesizes touch input.
type Gestures interface {
	Click(ctx context.Context, x, y int) error
	LongClick(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
	Back(ctx context.Context) error
	Home(ctx context.Context) error
	// ScreenSize returns the device width and height in pixels.
	ScreenSize() (int, int)
}

// Keyboard types into the focused input.
type Keyboard interface {
	InputText(ctx context.Context, text string) error
}

// Clipboard reads and writes the OS clipboard.
type Clipboard interface {
	GetClipboard(ctx context.Context) (string, error)
	SetClipboard(ctx context.Context, text string) error
}

// Apps controls application lifecycle.
type Apps interface {
	LaunchPackage(ctx context.Context, pkg string) error
	StartActivity(ctx context.Context, component string) error
	ForceStop(ctx context.Context, pkg string) error
	// CurrentPackage may return "" for a few seconds after a launch.
	CurrentPackage(ctx context.Context) (string, error)
}

// Device is everything an orchestration session drives.
type Device interface {
	Screen
	Gestures
	Keyboard
	Clipboard
	Apps
}

// ClickElement taps the center of e.
func ClickElement(ctx context.Context, g Gestures, e Element) error {
	x, y := e.Bounds().Center()
	return g.Click(ctx, x, y)
}
