package variant

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// CarouselCursor tracks the position of a swipe-only carousel. The UI does
// not expose the selected index, so the offset is counted here: each
// StepLeft advances it by one and each StepRight moves it back.
type CarouselCursor struct {
	g          core.Gestures
	sleep      session.Sleeper
	area       core.Bounds
	durationMs int
	settle     time.Duration
	offset     int
}

// NewCarouselCursor returns a cursor swiping inside area.
func NewCarouselCursor(g core.Gestures, sleep session.Sleeper, area core.Bounds, durationMs int, settle time.Duration) *CarouselCursor {
	return &CarouselCursor{g: g, sleep: sleep, area: area, durationMs: durationMs, settle: settle}
}

// Offset is the number of net left steps taken since creation.
func (c *CarouselCursor) Offset() int { return c.offset }

// span returns the two x coordinates a swipe travels between. Both stay a
// sixth of the width inside the area so the stroke covers two thirds of it
// and never starts on an edge.
func (c *CarouselCursor) span() (int, int, int) {
	inset := c.area.Width / 6
	_, y := c.area.Center()
	return c.area.X + inset, c.area.Right() - inset, y
}

// StepLeft swipes right-to-left, revealing the next variant. A failed
// swipe is returned as is and leaves the offset unchanged;
// session.ErrStopped means the swipe landed but the session stopped.
func (c *CarouselCursor) StepLeft(ctx context.Context) error {
	left, right, y := c.span()
	if err := c.g.Swipe(ctx, right, y, left, y, c.durationMs); err != nil {
		return fmt.Errorf("carousel swipe left: %w", err)
	}
	c.offset++
	if !c.sleep.Sleep(ctx, c.settle) {
		return session.ErrStopped
	}
	return nil
}

// StepRight swipes left-to-right n times and returns how many swipes
// landed, with the swipe error or session.ErrStopped that cut it short.
func (c *CarouselCursor) StepRight(ctx context.Context, n int) (int, error) {
	left, right, y := c.span()
	for done := 0; done < n; done++ {
		if err := c.g.Swipe(ctx, left, y, right, y, c.durationMs); err != nil {
			return done, fmt.Errorf("carousel swipe right: %w", err)
		}
		c.offset--
		if !c.sleep.Sleep(ctx, c.settle) {
			return done + 1, session.ErrStopped
		}
	}
	return n, nil
}
