// Package variant walks a product's SKU image carousel looking for a
// variant whose price satisfies a goal.
package variant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// ErrNoMainImage means the carousel could not be located.
var ErrNoMainImage = errors.New("main product image not found")

// Mode selects how a Goal judges a price.
type Mode int

const (
	// ModeThreshold accepts a price strictly below Goal.Threshold.
	ModeThreshold Mode = iota
	// ModeRange accepts a price inside Goal.Range, inclusive.
	ModeRange
	// ModeCheapest walks the whole carousel and returns to the lowest price.
	ModeCheapest
)

func (m Mode) String() string {
	switch m {
	case ModeThreshold:
		return "threshold"
	case ModeRange:
		return "range"
	case ModeCheapest:
		return "cheapest"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Goal is what SelectVariantSatisfying looks for.
type Goal struct {
	Mode      Mode
	Threshold float64
	Range     price.Range
}

// Threshold returns a goal accepting prices below t.
func Threshold(t float64) Goal { return Goal{Mode: ModeThreshold, Threshold: t} }

// Within returns a goal accepting prices in r.
func Within(r price.Range) Goal { return Goal{Mode: ModeRange, Range: r} }

// Cheapest returns a goal selecting the lowest-priced variant.
func Cheapest() Goal { return Goal{Mode: ModeCheapest} }

// Satisfied reports whether p meets a threshold or range goal. Cheapest
// goals are never satisfied by a single price.
func (g Goal) Satisfied(p float64) bool {
	switch g.Mode {
	case ModeThreshold:
		return p < g.Threshold
	case ModeRange:
		return g.Range.Contains(p)
	}
	return false
}

func (g Goal) String() string {
	switch g.Mode {
	case ModeThreshold:
		return "<" + price.Format(g.Threshold)
	case ModeRange:
		return g.Range.String()
	}
	return g.Mode.String()
}

// Result describes a finished walk.
type Result struct {
	Success bool
	// Price is the last price read, or the best one in cheapest mode.
	Price float64
	// Steps is the number of left swipes taken.
	Steps int
	// BestStep is the offset at which the best price was seen.
	BestStep int
	// Corrections is the number of right swipes made to return to BestStep.
	Corrections int
}

// Engine negotiates a variant on a product detail or spec page.
type Engine struct {
	dev     core.Device
	scanner *scan.Scanner
	live    *config.Live
	sleep   session.Sleeper
	log     zerolog.Logger
}

// NewEngine wires an engine. scanner reads the prices on screen.
func NewEngine(dev core.Device, scanner *scan.Scanner, live *config.Live, sleep session.Sleeper, log zerolog.Logger) *Engine {
	return &Engine{dev: dev, scanner: scanner, live: live, sleep: sleep, log: log}
}

// SelectVariantSatisfying taps the main image to focus the carousel, then
// swipes left re-reading the minimum visible price after every step. The
// walk is bounded by the configured maximum step count. On success the
// selection is committed by tapping the screen center.
func (e *Engine) SelectVariantSatisfying(ctx context.Context, goal Goal) (Result, error) {
	cfg := e.live.Get()
	img, ok := e.MainImage(ctx)
	if !ok {
		e.log.Warn().Msg("no main image, cannot negotiate variant")
		return Result{}, ErrNoMainImage
	}
	area := img.Bounds()
	if err := core.ClickElement(ctx, e.dev, img); err != nil {
		return Result{}, fmt.Errorf("focus carousel: %w", err)
	}
	if !e.sleep.Sleep(ctx, cfg.Timing.AfterClick.D()) {
		return Result{}, session.ErrStopped
	}

	cur := NewCarouselCursor(e.dev, e.sleep, area, cfg.Timing.SwipeDurationMs, cfg.Timing.AfterSwipe.D())
	log := e.log.With().Str("goal", goal.String()).Logger()

	var (
		res Result
		err error
	)
	if goal.Mode == ModeCheapest {
		res, err = e.walkCheapest(ctx, cur, cfg.Negotiation, log)
	} else {
		res, err = e.walkUntil(ctx, cur, goal, cfg.Negotiation.MaxSteps, log)
	}
	if err != nil || !res.Success {
		return res, err
	}
	if err := e.commit(ctx); err != nil {
		return res, err
	}
	log.Info().Float64("price", res.Price).Int("steps", res.Steps).Msg("variant selected")
	return res, nil
}

func (e *Engine) walkUntil(ctx context.Context, cur *CarouselCursor, goal Goal, maxSteps int, log zerolog.Logger) (Result, error) {
	var res Result
	for {
		if e.sleep.StopRequested() {
			return res, session.ErrStopped
		}
		if p, ok := e.scanner.MinPrice(ctx); ok {
			res.Price = p
			log.Debug().Int("step", cur.Offset()).Float64("price", p).Msg("variant price")
			if goal.Satisfied(p) {
				res.Success = true
				res.Steps, res.BestStep = cur.Offset(), cur.Offset()
				return res, nil
			}
		}
		if cur.Offset() >= maxSteps {
			break
		}
		if err := cur.StepLeft(ctx); err != nil {
			res.Steps = cur.Offset()
			return res, err
		}
	}
	res.Steps = cur.Offset()
	log.Info().Int("steps", res.Steps).Msg("no variant met the goal")
	return res, nil
}

func (e *Engine) walkCheapest(ctx context.Context, cur *CarouselCursor, n config.Negotiation, log zerolog.Logger) (Result, error) {
	var res Result
	found := false
	noImprove := 0

	observe := func() {
		p, ok := e.scanner.MinPrice(ctx)
		if !ok {
			noImprove++
			return
		}
		log.Debug().Int("step", cur.Offset()).Float64("price", p).Msg("variant price")
		if !found || p < res.Price {
			res.Price, res.BestStep, found = p, cur.Offset(), true
			noImprove = 0
			return
		}
		noImprove++
	}

	observe()
	noImprove = 0
	for cur.Offset() < n.MaxSteps && noImprove < n.NoImproveLimit {
		if e.sleep.StopRequested() {
			res.Steps = cur.Offset()
			return res, session.ErrStopped
		}
		if err := cur.StepLeft(ctx); err != nil {
			res.Steps = cur.Offset()
			return res, err
		}
		observe()
	}
	res.Steps = cur.Offset()
	if !found {
		log.Info().Int("steps", res.Steps).Msg("no readable price in carousel")
		return res, nil
	}

	back := res.Steps - res.BestStep
	corrections, err := cur.StepRight(ctx, back)
	res.Corrections = corrections
	if err != nil {
		return res, err
	}
	res.Success = true
	return res, nil
}

// commit taps the middle of the screen, which accepts the selected variant
// without changing it.
func (e *Engine) commit(ctx context.Context) error {
	w, h := e.dev.ScreenSize()
	if err := e.dev.Click(ctx, w/2, h/2); err != nil {
		return fmt.Errorf("commit variant: %w", err)
	}
	if !e.sleep.Sleep(ctx, e.live.Get().Timing.AfterClick.D()) {
		return session.ErrStopped
	}
	return nil
}

// MainImage finds the product image by resource id, then by description,
// then as the largest clickable ImageView on screen.
func (e *Engine) MainImage(ctx context.Context) (core.Element, bool) {
	elems, err := e.dev.Snapshot(ctx)
	if err != nil {
		return nil, false
	}
	l := e.live.Get().Labels
	for _, id := range l.MainImageIDs {
		if found := core.Filter(elems, core.ByID(id)); len(found) > 0 {
			return found[0], true
		}
	}
	for _, d := range l.MainImageDescs {
		if found := core.Filter(elems, core.ByDesc(d, core.Contains)); len(found) > 0 {
			return found[0], true
		}
	}

	var best core.Element
	for _, el := range elems {
		if !el.Clickable() || !strings.HasSuffix(el.ClassName(), "ImageView") {
			continue
		}
		if best == nil || el.Bounds().Area() > best.Bounds().Area() {
			best = el
		}
	}
	return best, best != nil
}
