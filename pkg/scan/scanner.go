// Package scan finds price-tagged products on screen, resolves where to tap
// to open them and remembers what was already tried.
package scan

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// syntheticOffsetPx is how far above a price the fallback tap lands.
const syntheticOffsetPx = 120

// Candidate is a price seen on screen.
type Candidate struct {
	RawText string
	Price   float64
	X, Y    int
	Source  core.Element
}

// Region sources for Target.Via.
const (
	ViaAncestor  = "ancestor"
	ViaImage     = "image"
	ViaSynthetic = "synthetic"
)

// Target is where to tap to open a candidate.
type Target struct {
	X, Y int
	Via  string
}

// Scanner discovers candidates on the current screen.
type Scanner struct {
	dev   core.Device
	cls   *page.Classifier
	live  *config.Live
	sleep session.Sleeper
	log   zerolog.Logger
}

// NewScanner wires a scanner.
func NewScanner(dev core.Device, cls *page.Classifier, live *config.Live, sleep session.Sleeper, log zerolog.Logger) *Scanner {
	return &Scanner{dev: dev, cls: cls, live: live, sleep: sleep, log: log}
}

// ScanForPriceCandidates returns every acceptable price on screen, top to
// bottom. Promotional texts are dropped after they parse.
func (s *Scanner) ScanForPriceCandidates(ctx context.Context) []Candidate {
	elems, err := s.dev.Snapshot(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("snapshot failed")
		return nil
	}
	return Candidates(elems, s.live.Get().PromoFilter(), s.log)
}

// Candidates extracts price candidates from a snapshot.
func Candidates(elems []core.Element, promo price.PromoFilter, log zerolog.Logger) []Candidate {
	var out []Candidate
	for _, e := range elems {
		text := strings.TrimSpace(core.TextOf(e))
		if text == "" || e.Bounds().Empty() {
			continue
		}
		p, ok := price.Extract(text)
		if !ok {
			continue
		}
		if promo.IsPromotional(text) {
			log.Debug().Str("text", text).Msg("promotional price dropped")
			continue
		}
		x, y := e.Bounds().Center()
		out = append(out, Candidate{RawText: text, Price: p, X: x, Y: y, Source: e})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// MinPrice returns the lowest candidate price on screen.
func (s *Scanner) MinPrice(ctx context.Context) (float64, bool) {
	best, ok := 0.0, false
	for _, c := range s.ScanForPriceCandidates(ctx) {
		if !ok || c.Price < best {
			best, ok = c.Price, true
		}
	}
	return best, ok
}

// FindClickableRegionNear resolves the tap target for c: a bounded
// clickable ancestor, else the nearest plausible image above, else a point
// just above the price.
func (s *Scanner) FindClickableRegionNear(ctx context.Context, c Candidate) (Target, bool) {
	cfg := s.live.Get().Scan
	w, h := s.dev.ScreenSize()

	if c.Source != nil {
		e := c.Source.Parent()
		for level := 0; level < cfg.AncestorLevels && e != nil; level++ {
			b := e.Bounds()
			if e.Clickable() && !b.Empty() && b.Width < w*8/10 && b.Height < h*4/10 {
				x, y := b.Center()
				return Target{X: x, Y: y, Via: ViaAncestor}, true
			}
			e = e.Parent()
		}
	}

	elems, err := s.dev.Snapshot(ctx)
	if err == nil {
		if img, ok := nearestImageAbove(elems, c, cfg.ImageMaxDxPx, cfg.ImageMinSidePx); ok {
			x, y := img.Bounds().Center()
			return Target{X: x, Y: y, Via: ViaImage}, true
		}
	}

	y := c.Y - syntheticOffsetPx
	if y < 0 {
		return Target{}, false
	}
	return Target{X: c.X, Y: y, Via: ViaSynthetic}, true
}

func nearestImageAbove(elems []core.Element, c Candidate, maxDx, minSide int) (core.Element, bool) {
	var best core.Element
	bestDist := 0.0
	for _, e := range elems {
		if !strings.HasSuffix(e.ClassName(), "ImageView") && !strings.HasSuffix(e.ClassName(), ".Image") {
			continue
		}
		b := e.Bounds()
		if b.Width < minSide || b.Height < minSide {
			continue
		}
		x, y := b.Center()
		if y >= c.Y || abs(x-c.X) > maxDx {
			continue
		}
		d := core.Distance(x, y, c.X, c.Y)
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, best != nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PickOptions refines Pick.
type PickOptions struct {
	// ExcludeTopRatio skips candidates in the top fraction of the screen,
	// where the search bar lives. Zero uses the configured default.
	ExcludeTopRatio float64
	// Skip rejects candidates for flow-specific reasons.
	Skip func(c Candidate) bool
}

// Pick returns the first on-screen candidate inside rng that is below the
// excluded top band and not already in hist.
func (s *Scanner) Pick(ctx context.Context, rng price.Range, hist *History, opts PickOptions) (Candidate, bool) {
	ratio := opts.ExcludeTopRatio
	if ratio == 0 {
		ratio = s.live.Get().Scan.ExcludeTopRatio
	}
	_, h := s.dev.ScreenSize()
	top := int(ratio * float64(h))

	for _, c := range s.ScanForPriceCandidates(ctx) {
		ev := s.log.Debug().Str("text", c.RawText).Float64("price", c.Price)
		switch {
		case c.Y < top:
			ev.Msg("candidate in excluded top band")
		case !rng.Contains(c.Price):
			ev.Str("range", rng.String()).Msg("candidate out of range")
		case hist != nil && hist.Seen(c.X, c.Y, c.RawText):
			ev.Msg("candidate already processed")
		case opts.Skip != nil && opts.Skip(c):
			ev.Msg("candidate skipped")
		default:
			ev.Msg("candidate picked")
			return c, true
		}
	}
	return Candidate{}, false
}

// ClickAndVerify records c in hist, taps t and waits for a product detail
// page. The position stays recorded even when verification fails.
func (s *Scanner) ClickAndVerify(ctx context.Context, c Candidate, t Target, hist *History) bool {
	if hist != nil {
		hist.Add(c.X, c.Y, c.RawText)
	}
	cfg := s.live.Get()
	if err := s.dev.Click(ctx, t.X, t.Y); err != nil {
		s.log.Warn().Err(err).Msg("click failed")
		return false
	}
	if !s.sleep.Sleep(ctx, cfg.Timing.AfterClick.D()) {
		return false
	}
	ok := s.cls.WaitForDetail(ctx, cfg.Timing.PageLoad.D())
	s.log.Debug().Bool("detail", ok).Str("via", t.Via).Str("text", c.RawText).Msg("click and verify")
	return ok
}

// ScrollList drags the list up by roughly half a screen.
func (s *Scanner) ScrollList(ctx context.Context) bool {
	cfg := s.live.Get()
	w, h := s.dev.ScreenSize()
	x := w / 2
	if err := s.dev.Swipe(ctx, x, h*75/100, x, h*30/100, cfg.Timing.SwipeDurationMs); err != nil {
		s.log.Debug().Err(err).Msg("scroll failed")
	}
	return s.sleep.Sleep(ctx, cfg.Timing.AfterSwipe.D())
}

// CardOf returns the nearest ancestor of c that looks like a product card:
// clickable or holding several texts.
func (s *Scanner) CardOf(c Candidate) core.Element {
	if c.Source == nil {
		return nil
	}
	levels := s.live.Get().Scan.AncestorLevels
	e := c.Source.Parent()
	for i := 0; i < levels && e != nil; i++ {
		if e.Clickable() || e.ChildCount() >= 2 {
			return e
		}
		e = e.Parent()
	}
	return nil
}
