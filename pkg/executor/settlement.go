package executor

import (
	"context"
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
)

// titleKeyLen is the title prefix identifying a favorites row within one
// filter pass.
const titleKeyLen = 10

// favoriteRow is one priced card of the favorites list.
type favoriteRow struct {
	cand   scan.Candidate
	card   core.Element
	fields scan.CardFields
}

// settle prunes favorites priced above the range, then selects up to Count
// in-range favorites and settles them together.
func (j *job) settle(ctx context.Context) error {
	if !j.reach(ctx, page.FavoriteList) {
		return errNavigation
	}

	deleted, scrolls, err := j.filterRound(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		// Removed rows reflow the list and can pull unseen expensive rows
		// into already scanned positions.
		j.log.Info().Int("deleted", deleted).Msg("repeating price filter from the top")
		if err := j.scrollToTop(ctx, scrolls); err != nil {
			return err
		}
		more, n, err := j.filterRound(ctx)
		if err != nil {
			return err
		}
		deleted += more
		scrolls = n
	}
	j.log.Info().Int("deleted", deleted).Msg("price filter done")
	if err := j.scrollToTop(ctx, scrolls); err != nil {
		return err
	}
	return j.selectAndSettle(ctx)
}

func (j *job) favoriteRows(ctx context.Context) []favoriteRow {
	labels := j.live.Get().Labels
	var out []favoriteRow
	seen := map[core.Element]bool{}
	for _, c := range j.scanner.ScanForPriceCandidates(ctx) {
		card := j.scanner.CardOf(c)
		if card == nil || seen[card] {
			continue
		}
		seen[card] = true
		out = append(out, favoriteRow{
			cand:   c,
			card:   card,
			fields: scan.ExtractCard(card, labels.ShopSuffixes, labels.SpecSelectedHint),
		})
	}
	return out
}

// filterRound deletes every row priced above the range maximum, scrolling
// forward until a screen shows no unseen row. After a deletion the same
// screen is read again since the list has reflowed.
func (j *job) filterRound(ctx context.Context) (deleted, scrolls int, err error) {
	maxScrolls := j.live.Get().Scan.MaxScrolls
	seen := map[string]bool{}
	for scrolls <= maxScrolls {
		if err := j.ctrl.Check(ctx); err != nil {
			return deleted, scrolls, err
		}
		fresh, removed := false, false
		for _, row := range j.favoriteRows(ctx) {
			key := scan.TitleKey(row.fields.Title, titleKeyLen)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			fresh = true
			if row.cand.Price <= j.req.PriceRange.Max {
				continue
			}
			if j.deleteRow(ctx, row) {
				deleted++
				removed = true
				break
			}
		}
		if removed {
			continue
		}
		if !fresh || scrolls == maxScrolls {
			break
		}
		if !j.scroll(ctx, false) {
			return deleted, scrolls, j.ctrl.Check(ctx)
		}
		scrolls++
	}
	return deleted, scrolls, nil
}

// deleteRow swipes the row left to reveal its delete action, taps it and
// confirms the dialog.
func (j *job) deleteRow(ctx context.Context, row favoriteRow) bool {
	cfg := j.live.Get()
	b := row.card.Bounds()
	y := b.Y + b.Height/2
	if err := j.dev.Swipe(ctx, b.X+b.Width*85/100, y, b.X+b.Width*20/100, y, cfg.Timing.SwipeDurationMs); err != nil {
		j.log.Debug().Err(err).Msg("reveal swipe failed")
		return false
	}
	if !j.ctrl.Sleep(ctx, cfg.Timing.AfterSwipe.D()) {
		return false
	}
	if !j.clickNearest(ctx, cfg.Labels.DeleteButtons, y) {
		j.log.Warn().Str("product", row.fields.Title).Msg("delete action not revealed")
		return false
	}
	if !j.clickLabel(ctx, cfg.Labels.ConfirmButtons, page.Anywhere) {
		j.log.Debug().Msg("no confirm dialog")
	}
	j.log.Info().Str("product", row.fields.Title).Float64("price", row.cand.Price).Msg("favorite removed")
	return true
}

func (j *job) scrollToTop(ctx context.Context, scrolls int) error {
	for i := 0; i <= scrolls; i++ {
		if !j.scroll(ctx, true) {
			return j.ctrl.Check(ctx)
		}
	}
	return nil
}

// selectAndSettle ticks up to Count in-range rows, identified by product
// signature so a row is never selected twice, then taps settle.
func (j *job) selectAndSettle(ctx context.Context) error {
	cfg := j.live.Get()
	want := j.req.Count
	visited := scan.SignatureSet{}
	var picked []*attempt

	for scrolls := 0; scrolls <= cfg.Scan.MaxScrolls && (want == 0 || len(picked) < want); scrolls++ {
		if err := j.ctrl.Check(ctx); err != nil {
			return err
		}
		fresh := false
		for _, row := range j.favoriteRows(ctx) {
			sig, ok := row.fields.Sign()
			if !ok || !visited.Add(sig) {
				continue
			}
			fresh = true
			if !j.req.PriceRange.Contains(row.cand.Price) {
				continue
			}
			if !j.selectRow(ctx, row) {
				continue
			}
			a := &attempt{w: j.w}
			a.open(row.fields.Title, row.cand.Price)
			a.detail("signature", sig)
			picked = append(picked, a)
			if want > 0 && len(picked) >= want {
				break
			}
		}
		if !fresh || (want > 0 && len(picked) >= want) {
			break
		}
		if !j.scroll(ctx, false) {
			return j.ctrl.Check(ctx)
		}
	}

	if want == 0 {
		j.w.SetRequested(len(picked))
	}
	if len(picked) == 0 {
		j.log.Info().Msg("no favorite in range to settle")
		return nil
	}

	settled := j.clickLabel(ctx, cfg.Labels.SettleButtons, page.BottomBar)
	ok := settled && flow.FavoriteSettlement.Verify().Decide(false, j.pageHas(ctx, cfg.Labels.PayFailure))
	for _, a := range picked {
		switch {
		case !settled:
			a.fail(report.ReasonVerify, "settle button not found")
		case !ok:
			a.fail(report.ReasonVerify, "settlement page reported failure")
		default:
			a.pass()
		}
	}
	j.log.Info().Int("selected", len(picked)).Bool("settled", ok).Msg("settlement done")
	return nil
}

// selectRow taps the row's selection control: a labelled element or a
// checkbox inside the card, else the card's left edge.
func (j *job) selectRow(ctx context.Context, row favoriteRow) bool {
	labels := j.live.Get().Labels
	b := row.card.Bounds()
	elems, err := j.dev.Snapshot(ctx)
	if err != nil {
		return false
	}
	for _, e := range elems {
		cx, cy := e.Bounds().Center()
		if !b.Contains(cx, cy) {
			continue
		}
		if strings.HasSuffix(e.ClassName(), "CheckBox") || containsLabel(core.TextOf(e), labels.SelectItem) {
			return j.tap(ctx, e)
		}
	}
	if err := j.dev.Click(ctx, b.X+b.Width/20, b.Y+b.Height/2); err != nil {
		return false
	}
	return j.ctrl.Sleep(ctx, j.live.Get().Timing.AfterClick.D())
}

func containsLabel(s string, labels []string) bool {
	s = strings.TrimSpace(s)
	for _, l := range labels {
		if l != "" && s == l {
			return true
		}
	}
	return false
}
