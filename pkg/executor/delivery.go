package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/courier"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/session"
	"github.com/devicelab-dev/cartpilot/pkg/store"
)

// minNameRunes is the shortest text taken for a product name.
const minNameRunes = 4

// logisticsPair is a "view logistics" button and the product it belongs to.
type logisticsPair struct {
	Product string
	Button  core.Element
}

// pairLogistics matches every logistics button with the nearest product
// name strictly above it. Buttons with no name above are dropped.
func pairLogistics(elems []core.Element, l config.Labels) []logisticsPair {
	var buttons, names []core.Element
	for _, e := range elems {
		t := strings.TrimSpace(e.Text())
		if t == "" || e.Bounds().Empty() {
			continue
		}
		switch {
		case containsLabel(t, l.Logistics):
			buttons = append(buttons, e)
		case isProductName(t, l):
			names = append(names, e)
		}
	}

	var out []logisticsPair
	for _, b := range buttons {
		top := b.Bounds().Y
		var best core.Element
		for _, n := range names {
			if n.Bounds().Bottom() > top {
				continue
			}
			if best == nil || n.Bounds().Bottom() > best.Bounds().Bottom() {
				best = n
			}
		}
		if best != nil {
			out = append(out, logisticsPair{Product: strings.TrimSpace(best.Text()), Button: b})
		}
	}
	return out
}

func isProductName(t string, l config.Labels) bool {
	if len([]rune(t)) < minNameRunes || price.LooksLikePrice(t) {
		return false
	}
	for _, set := range [][]string{l.Logistics, l.CopyButtons, l.PendingPayment, l.PendingDelivery, l.PersonalAnchors, l.HomeTab, l.PersonalTab} {
		if containsLabel(t, set) {
			return false
		}
	}
	return true
}

// pairKeys names every pair on one screen by its product and its ordinal
// among same-named cards, so repeat orders of one product stay distinct.
func pairKeys(pairs []logisticsPair) []string {
	seen := map[string]int{}
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = fmt.Sprintf("%s#%d", p.Product, seen[p.Product])
		seen[p.Product]++
	}
	return keys
}

// screenPrint identifies a list position by its cards and their button
// offsets. An unchanged print after a scroll means the list has ended.
func screenPrint(pairs []logisticsPair) string {
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s@%d;", p.Product, p.Button.Bounds().Y)
	}
	return b.String()
}

// deliveries collects the tracking number of every parcel on the pending
// delivery list and writes them to the store. Cards are only told apart
// within one screen; across scrolls the tracking number is the sole dedup.
func (j *job) deliveries(ctx context.Context) error {
	if !j.reach(ctx, page.PendingDelivery) {
		return errNavigation
	}
	cfg := j.live.Get()

	numbers := map[string]bool{}
	var parcels []store.Delivery
	got, total := 0, 0
	full := func() bool { return j.req.Count > 0 && got >= j.req.Count }

	var err error
	prev := ""
screens:
	for scrolls := 0; scrolls <= cfg.Scan.MaxScrolls && !full(); scrolls++ {
		opened := map[string]bool{}
		first, fresh := true, false
		for !full() {
			if err = j.ctrl.Check(ctx); err != nil {
				break screens
			}
			elems, serr := j.dev.Snapshot(ctx)
			if serr != nil {
				j.log.Warn().Err(serr).Msg("snapshot failed")
				break
			}
			pairs := pairLogistics(elems, cfg.Labels)
			if first {
				first = false
				mark := screenPrint(pairs)
				if scrolls > 0 && mark == prev {
					break screens
				}
				prev = mark
			}
			var next *logisticsPair
			for i, key := range pairKeys(pairs) {
				if !opened[key] {
					opened[key] = true
					next = &pairs[i]
					break
				}
			}
			if next == nil {
				break
			}
			fresh = true
			total++

			a := &attempt{w: j.w}
			a.open(next.Product, 0)
			out, ierr := j.guard(ctx, a, func(ctx context.Context, a *attempt) (outcome, error) {
				d, out, err := j.trackOne(ctx, a, *next, numbers)
				if d.Product != "" {
					parcels = append(parcels, d)
				}
				return out, err
			})
			if errors.Is(ierr, session.ErrStopped) {
				a.fail(report.ReasonStopped, "stopped")
				err = ierr
				break screens
			}
			if ierr != nil {
				a.fail(report.ReasonError, ierr.Error())
			}
			if out == succeeded {
				a.pass()
				got++
			}
			if !j.backTo(ctx, page.PendingDelivery) && !j.reach(ctx, page.PendingDelivery) {
				err = errNavigation
				break screens
			}
		}
		if !fresh {
			break
		}
		if !j.scroll(ctx, false) {
			err = j.ctrl.Check(ctx)
			break
		}
	}

	if j.req.Count == 0 {
		j.w.SetRequested(total)
	}
	if len(parcels) > 0 {
		if serr := j.store.SaveDeliveries(parcels); serr != nil {
			j.log.Warn().Err(serr).Msg("deliveries not saved")
		}
	}
	j.log.Info().Int("parcels", got).Int("opened", total).Msg("delivery scan done")
	return err
}

// trackOne opens the logistics page of p and copies its tracking number.
// Each copy control is tried in turn with a clipboard diff; the first
// copied text holding a tracking number wins. A parcel whose number cannot
// be captured is still returned, with an empty number.
func (j *job) trackOne(ctx context.Context, a *attempt, p logisticsPair, numbers map[string]bool) (store.Delivery, outcome, error) {
	cfg := j.live.Get()
	d := store.Delivery{Product: p.Product, Timestamp: j.store.Stamp()}

	if !j.tap(ctx, p.Button) || !j.ctrl.Sleep(ctx, cfg.Timing.PageLoad.D()) {
		if err := j.ctrl.Check(ctx); err != nil {
			return store.Delivery{}, rejected, err
		}
		a.fail(report.ReasonNavigation, "logistics page not opened")
		return store.Delivery{}, rejected, nil
	}

	for i := 0; ; i++ {
		v, ok := j.view(ctx)
		if !ok {
			break
		}
		copies := v.WithLabel(cfg.Labels.CopyButtons, page.Anywhere, false)
		if i >= len(copies) {
			break
		}
		btn := copies[i]
		diff, err := j.clip.SnapshotDiff(ctx, func(ctx context.Context) error {
			return core.ClickElement(ctx, j.dev, btn)
		})
		if errors.Is(err, session.ErrStopped) {
			return d, rejected, err
		}
		if err != nil {
			j.log.Warn().Err(err).Msg("clipboard unavailable")
			continue
		}
		text, changed := diff.Value()
		if !changed {
			j.log.Debug().Int("copy", i).Msg("clipboard unchanged after copy")
			continue
		}
		if n, ok := courier.ExtractNumber(text); ok {
			d.Number = n
			break
		}
		j.log.Debug().Str("text", text).Msg("copied text holds no tracking number")
	}

	if d.Number == "" {
		a.fail(report.ReasonVerify, "tracking number not captured")
		return d, rejected, nil
	}
	if numbers[d.Number] {
		a.skip(report.ReasonDuplicate, d.Number)
		return store.Delivery{}, rejected, nil
	}
	numbers[d.Number] = true
	d.Courier = string(courier.Identify(d.Number))
	a.detail("number", d.Number)
	a.detail("courier", d.Courier)
	j.log.Info().Str("product", p.Product).Str("number", d.Number).Str("courier", d.Courier).Msg("tracking number captured")
	return d, succeeded, nil
}
