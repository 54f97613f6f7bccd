package executor

import (
	"context"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
)

// favorite adds Count products found by searching the keyword to the
// favorites list.
func (j *job) favorite(ctx context.Context) error {
	done := scan.SignatureSet{}
	return j.loop(ctx, j.req.Count, j.onResults, func(ctx context.Context, a *attempt) (outcome, error) {
		return j.favoriteOne(ctx, a, done)
	})
}

func (j *job) favoriteOne(ctx context.Context, a *attempt, done scan.SignatureSet) (outcome, error) {
	cfg := j.live.Get()

	c, ok, err := j.findCandidate(ctx, scan.PickOptions{Skip: func(c scan.Candidate) bool {
		sig, ok := j.cardFields(c).Sign()
		return ok && done.Has(sig)
	}})
	if err != nil {
		return rejected, err
	}
	if !ok {
		return exhausted, nil
	}
	card := j.cardFields(c)
	a.open(card.Title, c.Price)

	if !j.openCandidate(ctx, a, c) {
		return rejected, nil
	}
	if j.rejectIfForbidden(ctx, a, "product detail") {
		return rejected, nil
	}

	if j.req.Variant != flow.VariantNone {
		p, ok, err := j.negotiate(ctx, a, c.Price)
		if err != nil {
			return rejected, err
		}
		if !ok {
			a.fail(report.ReasonVariant, "no variant priced in "+j.req.PriceRange.String())
			j.backTo(ctx, page.ProductList)
			return rejected, nil
		}
		a.open(card.Title, p)
	}

	if !j.clickFavorite(ctx) {
		a.fail(report.ReasonVerify, "favorite button not found")
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}
	success := j.pageHas(ctx, cfg.Labels.FavoriteSuccess)
	failure := j.pageHas(ctx, cfg.Labels.FavoriteFailure)
	if !flow.Favorite.Verify().Decide(success, failure) {
		a.fail(report.ReasonVerify, "favorite not confirmed")
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}

	if sig, ok := card.Sign(); ok {
		done.Add(sig)
	}
	j.log.Info().Str("product", card.Title).Msg("favorited")
	j.backTo(ctx, page.ProductList)
	return succeeded, nil
}

// clickFavorite taps the favorite control: a labelled button in the bottom
// bar, else a clickable element whose description names a favorite or heart
// icon.
func (j *job) clickFavorite(ctx context.Context) bool {
	labels := j.live.Get().Labels
	if j.clickLabel(ctx, labels.FavoriteButtons, page.BottomBar) {
		return true
	}
	elems, err := j.dev.Snapshot(ctx)
	if err != nil {
		return false
	}
	for _, d := range labels.FavoriteDescs {
		q := core.Query{Desc: d, Mode: core.Contains, ClickableOnly: true}
		if found := core.Filter(elems, q); len(found) > 0 {
			return j.tap(ctx, found[0])
		}
	}
	return false
}
