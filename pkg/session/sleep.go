package session

import (
	"context"
	"time"
)

// Sleep waits for d in PollSlice increments. It returns false as soon as a
// stop is requested or ctx is done, within one slice.
func (c *Controller) Sleep(ctx context.Context, d time.Duration) bool {
	if c.Check(ctx) != nil {
		return false
	}
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.Check(ctx) == nil
		}
		slice := PollSlice
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if c.stop.Load() {
			return false
		}
	}
}

// Sleeper is the subset of Controller used by components that only wait and
// poll the stop flag.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) bool
	StopRequested() bool
}

var _ Sleeper = (*Controller)(nil)
