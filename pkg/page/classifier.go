package page

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// Screen is what the classifier needs from a device.
type Screen interface {
	core.Screen
	core.Gestures
}

// Classifier decides which page is displayed. It never fails: anything it
// cannot recognise is Unknown.
type Classifier struct {
	dev   Screen
	live  *config.Live
	sleep session.Sleeper
	log   zerolog.Logger
}

// NewClassifier returns a classifier reading labels from live.
func NewClassifier(dev Screen, live *config.Live, sleep session.Sleeper, log zerolog.Logger) *Classifier {
	return &Classifier{dev: dev, live: live, sleep: sleep, log: log}
}

func (c *Classifier) rules() []Rule {
	return Rules(c.live.Get().Labels)
}

// Classify returns the current page, scrolling up to the configured number
// of times to reveal anchors only visible at the top of a list.
func (c *Classifier) Classify(ctx context.Context) Kind {
	return c.matchWithScroll(ctx, c.rules(), c.live.Get().Scan.ClassifyScrollTry)
}

// ClassifyOnce classifies the current snapshot without scrolling.
func (c *Classifier) ClassifyOnce(ctx context.Context) Kind {
	return c.matchWithScroll(ctx, c.rules(), 0)
}

// Is reports whether the screen is kind, with the same bounded scrolling.
func (c *Classifier) Is(ctx context.Context, kind Kind) bool {
	for _, r := range c.rules() {
		if r.Kind == kind {
			return c.matchWithScroll(ctx, []Rule{r}, c.live.Get().Scan.ClassifyScrollTry) == kind
		}
	}
	return false
}

// matchWithScroll evaluates rules in order against fresh snapshots. Between
// attempts it performs a small upward scroll. The first satisfied rule wins.
func (c *Classifier) matchWithScroll(ctx context.Context, rules []Rule, maxScroll int) Kind {
	for attempt := 0; attempt <= maxScroll; attempt++ {
		if attempt > 0 {
			if !c.scrollUp(ctx) {
				return Unknown
			}
		}
		v, ok := c.view(ctx)
		if !ok {
			continue
		}
		for _, r := range rules {
			if ok, matched := r.Evaluate(v); ok {
				c.log.Debug().Str("page", r.Kind.String()).Int("attempt", attempt).
					Str("anchors", strings.Join(matched, ",")).Msg("page classified")
				return r.Kind
			}
		}
	}
	return Unknown
}

func (c *Classifier) view(ctx context.Context) (*View, bool) {
	elems, err := c.dev.Snapshot(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("snapshot failed")
		return nil, false
	}
	w, h := c.dev.ScreenSize()
	return NewView(elems, w, h), true
}

// scrollUp drags content down by a third of the screen, revealing the top.
func (c *Classifier) scrollUp(ctx context.Context) bool {
	cfg := c.live.Get()
	w, h := c.dev.ScreenSize()
	x := w / 2
	if err := c.dev.Swipe(ctx, x, h*35/100, x, h*65/100, cfg.Timing.SwipeDurationMs); err != nil {
		c.log.Debug().Err(err).Msg("scroll up failed")
	}
	return c.sleep.Sleep(ctx, cfg.Timing.AfterSwipe.D())
}

// DetailEvidence scores how strongly the current screen looks like a
// product detail page: one point per distinct detail anchor, two for a buy
// button in the bottom bar, one for a visible price, one when no home-page
// anchor is visible. The last point is weak evidence on its own.
func (c *Classifier) DetailEvidence(ctx context.Context) int {
	v, ok := c.view(ctx)
	if !ok {
		return 0
	}
	l := c.live.Get().Labels
	score := v.CountLabels(l.DetailAnchors, Anywhere, false)
	if v.HasLabel(l.BuyButtons, BottomBar, true) {
		score += 2
	}
	if v.PriceCount(Anywhere) > 0 {
		score++
	}
	if !v.HasLabel(l.HomeTab, BottomNav, false) {
		score++
	}
	return score
}

// DetailThreshold is the DetailEvidence score accepted as arrival on a
// detail page.
const DetailThreshold = 3

// WaitForDetail polls DetailEvidence until it reaches DetailThreshold or
// timeout passes.
func (c *Classifier) WaitForDetail(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if c.DetailEvidence(ctx) >= DetailThreshold {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if !c.sleep.Sleep(ctx, 300*time.Millisecond) {
			return false
		}
	}
}
