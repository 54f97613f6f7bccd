package uiautomator2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/uiautomator2"
)

type mockClient struct {
	mu       sync.Mutex
	sources  []string // returned in order; the last one repeats
	srcCalls int
	calls    []string
	clip     string
	sizeErr  error
}

func (m *mockClient) record(s string) {
	m.mu.Lock()
	m.calls = append(m.calls, s)
	m.mu.Unlock()
}

func (m *mockClient) Source(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sources) == 0 {
		return "", errors.New("no source")
	}
	i := m.srcCalls
	if i >= len(m.sources) {
		i = len(m.sources) - 1
	}
	m.srcCalls++
	return m.sources[i], nil
}

func (m *mockClient) WindowSize(ctx context.Context) (int, int, error) {
	if m.sizeErr != nil {
		return 0, 0, m.sizeErr
	}
	return 1080, 2400, nil
}

func (m *mockClient) Click(ctx context.Context, x, y int) error {
	m.record(fmt.Sprintf("click %d,%d", x, y))
	return nil
}

func (m *mockClient) LongClick(ctx context.Context, x, y, durationMs int) error {
	m.record(fmt.Sprintf("longclick %d,%d %d", x, y, durationMs))
	return nil
}

func (m *mockClient) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	m.record(fmt.Sprintf("swipe %d,%d->%d,%d", x1, y1, x2, y2))
	return nil
}

func (m *mockClient) Back(ctx context.Context) error {
	m.record("back")
	return nil
}

func (m *mockClient) PressKeyCode(ctx context.Context, keyCode int) error {
	m.record(fmt.Sprintf("key %d", keyCode))
	return nil
}

func (m *mockClient) InputText(ctx context.Context, text string) error {
	m.record("type " + text)
	return nil
}

func (m *mockClient) GetClipboard(ctx context.Context) (string, error) { return m.clip, nil }

func (m *mockClient) SetClipboard(ctx context.Context, text string) error {
	m.clip = text
	return nil
}

type mockApps struct {
	started []string
}

func (a *mockApps) LaunchPackage(ctx context.Context, pkg string) error {
	a.started = append(a.started, "launch "+pkg)
	return nil
}

func (a *mockApps) StartActivity(ctx context.Context, pkg, activity string) error {
	a.started = append(a.started, "start "+pkg+" "+activity)
	return nil
}

func (a *mockApps) ForceStop(ctx context.Context, pkg string) error { return nil }

func (a *mockApps) CurrentPackage(ctx context.Context) (string, error) { return "com.example", nil }

const homeSource = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <node class="android.widget.FrameLayout" bounds="[0,0][1080,2400]">
    <node text="首页" class="android.widget.TextView" clickable="true" bounds="[0,2250][216,2400]"/>
  </node>
</hierarchy>`

const emptySource = `<hierarchy><node class="android.widget.FrameLayout" bounds="[0,0][1080,2400]"/></hierarchy>`

func newTestDriver(t *testing.T, client *mockClient, apps AppController) *Driver {
	t.Helper()
	d, err := New(context.Background(), client, apps, Options{InputsPerSecond: 1000, PollInterval: 10 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestNewReadsScreenSize(t *testing.T) {
	d := newTestDriver(t, &mockClient{}, nil)
	w, h := d.ScreenSize()
	if w != 1080 || h != 2400 {
		t.Errorf("expected 1080x2400, got %dx%d", w, h)
	}
}

func TestNewFailsWithoutWindowSize(t *testing.T) {
	_, err := New(context.Background(), &mockClient{sizeErr: errors.New("boom")}, nil, Options{}, zerolog.Nop())
	if err == nil {
		t.Error("expected error")
	}
}

func TestFindPollsUntilMatch(t *testing.T) {
	client := &mockClient{sources: []string{emptySource, emptySource, homeSource}}
	d := newTestDriver(t, client, nil)

	found := d.Find(context.Background(), core.ByText("首页", core.Exact).WithTimeout(time.Second))
	if len(found) != 1 {
		t.Fatalf("expected 1 element, got %d", len(found))
	}
	if client.srcCalls != 3 {
		t.Errorf("expected 3 source reads, got %d", client.srcCalls)
	}
}

func TestFindZeroTimeoutLooksOnce(t *testing.T) {
	client := &mockClient{sources: []string{emptySource, homeSource}}
	d := newTestDriver(t, client, nil)

	if found := d.Find(context.Background(), core.ByText("首页", core.Exact)); len(found) != 0 {
		t.Errorf("expected no match, got %d", len(found))
	}
	if client.srcCalls != 1 {
		t.Errorf("expected a single source read, got %d", client.srcCalls)
	}
}

func TestFindStopsOnCancel(t *testing.T) {
	client := &mockClient{sources: []string{emptySource}}
	d := newTestDriver(t, client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Find(ctx, core.ByText("首页", core.Exact).WithTimeout(10*time.Second))
	if time.Since(start) > time.Second {
		t.Error("Find did not honour context cancellation")
	}
}

func TestSwipeClampsToScreen(t *testing.T) {
	client := &mockClient{}
	d := newTestDriver(t, client, nil)

	if err := d.Swipe(context.Background(), -20, 100, 5000, 3000, 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls[0] != "swipe 0,100->1079,2399" {
		t.Errorf("unexpected swipe %q", client.calls[0])
	}
}

func TestHomePressesHomeKey(t *testing.T) {
	client := &mockClient{}
	d := newTestDriver(t, client, nil)

	if err := d.Home(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := fmt.Sprintf("key %d", uiautomator2.KeyCodeHome)
	if client.calls[0] != want {
		t.Errorf("expected %q, got %q", want, client.calls[0])
	}
}

func TestLongClickUsesDefaultDuration(t *testing.T) {
	client := &mockClient{}
	d := newTestDriver(t, client, nil)

	d.LongClick(context.Background(), 10, 20)
	want := fmt.Sprintf("longclick 10,20 %d", DefaultLongPressMs)
	if client.calls[0] != want {
		t.Errorf("expected %q, got %q", want, client.calls[0])
	}
}

func TestStartActivitySplitsComponent(t *testing.T) {
	apps := &mockApps{}
	d := newTestDriver(t, &mockClient{}, apps)

	d.StartActivity(context.Background(), "com.example/.Main")
	d.StartActivity(context.Background(), "com.example")

	if apps.started[0] != "start com.example .Main" {
		t.Errorf("unexpected start %q", apps.started[0])
	}
	if apps.started[1] != "start com.example " {
		t.Errorf("unexpected start %q", apps.started[1])
	}
}

func TestAppsWithoutDevice(t *testing.T) {
	d := newTestDriver(t, &mockClient{}, nil)
	if err := d.LaunchPackage(context.Background(), "com.example"); err == nil {
		t.Error("expected error without adb device")
	}
	if _, err := d.CurrentPackage(context.Background()); err == nil {
		t.Error("expected error without adb device")
	}
}

func TestClipboardRoundTrip(t *testing.T) {
	d := newTestDriver(t, &mockClient{}, nil)
	d.SetClipboard(context.Background(), "YT1234")
	got, _ := d.GetClipboard(context.Background())
	if got != "YT1234" {
		t.Errorf("expected YT1234, got %q", got)
	}
}
