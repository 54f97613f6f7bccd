package executor

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
	"github.com/devicelab-dev/cartpilot/pkg/session"
	"github.com/devicelab-dev/cartpilot/pkg/variant"
)

// maxBacks bounds the back presses spent returning to a working page.
const maxBacks = 4

// onResults ensures a search result list for the job keyword is shown,
// searching again when it is not.
func (j *job) onResults(ctx context.Context) bool {
	if j.cls.ClassifyOnce(ctx) == page.ProductList {
		return true
	}
	return j.nav.Search(ctx, j.req.Keyword)
}

// reach navigates to kind, going home once more if the first attempt fails.
func (j *job) reach(ctx context.Context, kind page.Kind) bool {
	if j.nav.NavigateTo(ctx, kind) {
		return true
	}
	j.log.Warn().Str("target", kind.String()).Msg("navigation failed, returning home")
	return j.nav.GoHome(ctx) && j.nav.NavigateTo(ctx, kind)
}

// backTo presses back until kind is displayed.
func (j *job) backTo(ctx context.Context, kind page.Kind) bool {
	for i := 0; i < maxBacks; i++ {
		if j.cls.ClassifyOnce(ctx) == kind {
			return true
		}
		if !j.nav.Back(ctx) {
			return false
		}
	}
	return j.cls.ClassifyOnce(ctx) == kind
}

// findCandidate picks the next unprocessed in-range candidate, scrolling
// the list until one shows, the scroll budget is spent, or several screens
// in a row show no price at all.
func (j *job) findCandidate(ctx context.Context, opts scan.PickOptions) (scan.Candidate, bool, error) {
	cfg := j.live.Get().Scan
	empty := 0
	for scrolls := 0; scrolls <= cfg.MaxScrolls; scrolls++ {
		if err := j.ctrl.Check(ctx); err != nil {
			return scan.Candidate{}, false, err
		}
		if c, ok := j.scanner.Pick(ctx, j.req.PriceRange, j.history, opts); ok {
			return c, true, nil
		}
		if len(j.scanner.ScanForPriceCandidates(ctx)) == 0 {
			empty++
			if empty >= cfg.MaxEmptyScreens {
				break
			}
		} else {
			empty = 0
		}
		if scrolls < cfg.MaxScrolls && !j.scanner.ScrollList(ctx) {
			return scan.Candidate{}, false, session.ErrStopped
		}
	}
	return scan.Candidate{}, false, nil
}

// cardFields reads the product card around c.
func (j *job) cardFields(c scan.Candidate) scan.CardFields {
	labels := j.live.Get().Labels
	f := scan.CardFields{Price: c.Price}
	if card := j.scanner.CardOf(c); card != nil {
		f = scan.ExtractCard(card, labels.ShopSuffixes, labels.SpecSelectedHint)
	}
	if f.Title == "" {
		f.Title = c.RawText
	}
	if f.Price == 0 {
		f.Price = c.Price
	}
	return f
}

// openCandidate taps c and waits for its detail page. On failure the
// attempt is closed and the list restored.
func (j *job) openCandidate(ctx context.Context, a *attempt, c scan.Candidate) bool {
	t, ok := j.scanner.FindClickableRegionNear(ctx, c)
	if !ok {
		j.history.Add(c.X, c.Y, c.RawText)
		a.fail(report.ReasonVerify, "no tap target")
		return false
	}
	a.detail("tap", t.Via)
	if !j.scanner.ClickAndVerify(ctx, c, t, j.history) {
		a.fail(report.ReasonVerify, "detail page not reached")
		j.backTo(ctx, page.ProductList)
		return false
	}
	return true
}

// rejectIfForbidden runs the keyword gate. On a match the attempt is
// skipped and back is pressed until the list shows again.
func (j *job) rejectIfForbidden(ctx context.Context, a *attempt, where string) bool {
	if !j.gate.ContainsForbiddenKeyword(ctx, where) {
		return false
	}
	a.skip(report.ReasonForbidden, "forbidden keyword on "+where)
	j.backTo(ctx, page.ProductList)
	return true
}

// negotiate runs the variant engine for the job's policy and returns the
// selected price. A product without a carousel keeps its default variant
// when the displayed price is in range.
func (j *job) negotiate(ctx context.Context, a *attempt, fallback float64) (float64, bool, error) {
	var goal variant.Goal
	switch j.req.Variant {
	case flow.VariantNone:
		return fallback, true, nil
	case flow.VariantCheapest:
		goal = variant.Cheapest()
	default:
		goal = variant.Within(j.req.PriceRange)
	}

	res, err := j.engine.SelectVariantSatisfying(ctx, goal)
	if errors.Is(err, variant.ErrNoMainImage) {
		p, ok := j.scanner.MinPrice(ctx)
		if !ok {
			p = fallback
		}
		a.detail("variant", "default")
		return p, j.req.PriceRange.Contains(p), nil
	}
	if err != nil {
		return 0, false, err
	}
	a.detail("variant", goal.String())
	a.detail("variantSteps", strconv.Itoa(res.Steps))
	if !res.Success {
		return res.Price, false, nil
	}
	return res.Price, j.req.PriceRange.Contains(res.Price), nil
}

// clickLabel taps an element in band labelled with one of labels, trying
// labels in order, and waits for the UI to settle.
func (j *job) clickLabel(ctx context.Context, labels []string, band page.Band) bool {
	v, ok := j.view(ctx)
	if !ok {
		return false
	}
	for _, l := range labels {
		if found := v.WithLabel([]string{l}, band, false); len(found) > 0 {
			return j.tap(ctx, found[0])
		}
	}
	return false
}

// clickNearest taps the element labelled with one of labels whose center
// is vertically closest to y.
func (j *job) clickNearest(ctx context.Context, labels []string, y int) bool {
	v, ok := j.view(ctx)
	if !ok {
		return false
	}
	var best core.Element
	bestDy := 0
	for _, e := range v.WithLabel(labels, page.Anywhere, false) {
		_, cy := e.Bounds().Center()
		dy := cy - y
		if dy < 0 {
			dy = -dy
		}
		if best == nil || dy < bestDy {
			best, bestDy = e, dy
		}
	}
	if best == nil {
		return false
	}
	return j.tap(ctx, best)
}

func (j *job) tap(ctx context.Context, e core.Element) bool {
	if err := core.ClickElement(ctx, j.dev, e); err != nil {
		j.log.Debug().Err(err).Msg("tap failed")
		return false
	}
	return j.ctrl.Sleep(ctx, j.live.Get().Timing.AfterClick.D())
}

// pageHas reports whether any visible text contains one of labels.
func (j *job) pageHas(ctx context.Context, labels []string) bool {
	for _, t := range core.VisibleTexts(ctx, j.dev) {
		for _, l := range labels {
			if l != "" && strings.Contains(t, l) {
				return true
			}
		}
	}
	return false
}

func (j *job) view(ctx context.Context) (*page.View, bool) {
	elems, err := j.dev.Snapshot(ctx)
	if err != nil {
		j.log.Debug().Err(err).Msg("snapshot failed")
		return nil, false
	}
	w, h := j.dev.ScreenSize()
	return page.NewView(elems, w, h), true
}

// scroll drags a list up by roughly half a screen, or down when back is set.
func (j *job) scroll(ctx context.Context, back bool) bool {
	if !back {
		return j.scanner.ScrollList(ctx)
	}
	cfg := j.live.Get()
	w, h := j.dev.ScreenSize()
	if err := j.dev.Swipe(ctx, w/2, h*30/100, w/2, h*75/100, cfg.Timing.SwipeDurationMs); err != nil {
		j.log.Debug().Err(err).Msg("scroll failed")
	}
	return j.ctrl.Sleep(ctx, cfg.Timing.AfterSwipe.D())
}
