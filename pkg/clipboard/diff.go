// Package clipboard extracts values that the app only exposes through a
// "copy" button by diffing the OS clipboard around the tap.
package clipboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// Outcome classifies a snapshot diff.
type Outcome int

const (
	// Changed means the action put a value on the clipboard.
	Changed Outcome = iota
	// NoChangeDetected means the clipboard still holds what it held before,
	// i.e. the copy silently failed.
	NoChangeDetected
)

func (o Outcome) String() string {
	if o == Changed {
		return "changed"
	}
	return "no-change"
}

// Diff is the result of one snapshot, act, read cycle.
type Diff struct {
	Before  string
	After   string
	Outcome Outcome
}

// Value returns the copied text when the clipboard changed.
func (d Diff) Value() (string, bool) {
	if d.Outcome != Changed {
		return "", false
	}
	return strings.TrimSpace(d.After), true
}

const markerPrefix = "cartpilot-clip:"

// Snapshotter runs clipboard diffs against one device.
type Snapshotter struct {
	cb     core.Clipboard
	sleep  session.Sleeper
	settle time.Duration
}

// NewSnapshotter returns a snapshotter waiting settle after each action.
func NewSnapshotter(cb core.Clipboard, sleep session.Sleeper, settle time.Duration) *Snapshotter {
	return &Snapshotter{cb: cb, sleep: sleep, settle: settle}
}

// SnapshotDiff primes the clipboard with a unique marker, runs action,
// waits and reads the clipboard back. A copy of the same value twice in a
// row is therefore still reported as Changed. If the clipboard cannot be
// primed the plain before/after comparison is used. The previous content
// is put back on return, on a best-effort basis.
func (s *Snapshotter) SnapshotDiff(ctx context.Context, action func(ctx context.Context) error) (Diff, error) {
	before, err := s.cb.GetClipboard(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("read clipboard before: %w", err)
	}
	defer func() { _ = s.cb.SetClipboard(context.WithoutCancel(ctx), before) }()

	baseline := before
	marker := markerPrefix + uuid.NewString()
	if err := s.cb.SetClipboard(ctx, marker); err == nil {
		baseline = marker
	}

	if err := action(ctx); err != nil {
		return Diff{Before: before}, err
	}
	if !s.sleep.Sleep(ctx, s.settle) {
		return Diff{Before: before}, session.ErrStopped
	}

	after, err := s.cb.GetClipboard(ctx)
	if err != nil {
		return Diff{Before: before}, fmt.Errorf("read clipboard after: %w", err)
	}
	d := Diff{Before: before, After: after, Outcome: Changed}
	if after == baseline || strings.HasPrefix(after, markerPrefix) || strings.TrimSpace(after) == "" {
		d.Outcome = NoChangeDetected
		d.After = before
	}
	return d, nil
}
