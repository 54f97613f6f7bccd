package executor

import (
	"context"
	"errors"

	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/permission"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// purchase buys Count products found by searching the keyword.
func (j *job) purchase(ctx context.Context) error {
	return j.loop(ctx, j.req.Count, j.onResults, j.purchaseOne)
}

func (j *job) purchaseOne(ctx context.Context, a *attempt) (outcome, error) {
	cfg := j.live.Get()

	opts := scan.PickOptions{}
	if !j.req.AllowRepeat {
		opts.Skip = func(c scan.Candidate) bool {
			return j.store.HasPurchased(j.cardFields(c).Title)
		}
	}
	c, ok, err := j.findCandidate(ctx, opts)
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
	link, err := j.productLink(ctx)
	if err != nil {
		return rejected, err
	}
	if link != "" {
		a.detail("url", link)
	}

	if !j.clickLabel(ctx, cfg.Labels.BuyButtons, page.BottomBar) {
		a.fail(report.ReasonVerify, "buy button not found")
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}
	popup := j.cls.ClassifyOnce(ctx) == page.SpecificationPopup
	if popup && j.rejectIfForbidden(ctx, a, "specification popup") {
		return rejected, nil
	}

	p := c.Price
	if popup {
		p, ok, err = j.negotiate(ctx, a, c.Price)
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

	res, err := j.perm.Check(ctx, permission.Request{
		UserName:     j.user,
		ShopName:     card.Store,
		ProductURL:   link,
		ProductPrice: p,
		ProductSKU:   card.Spec,
	})
	switch {
	case errors.Is(err, session.ErrStopped):
		return rejected, err
	case errors.Is(err, permission.ErrDenied):
		a.skip(report.ReasonPermission, res.Message)
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	case err != nil:
		a.fail(report.ReasonPermission, err.Error())
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}
	if res.TaskID != "" {
		a.detail("task", res.TaskID)
	}

	if popup {
		j.clickLabel(ctx, cfg.Labels.ConfirmButtons, page.BottomBar)
	}
	if !j.clickLabel(ctx, cfg.Labels.PayButtons, page.Anywhere) {
		a.fail(report.ReasonVerify, "pay button not found")
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}
	if !flow.Purchase.Verify().Decide(false, j.pageHas(ctx, cfg.Labels.PayFailure)) {
		a.fail(report.ReasonVerify, "payment page reported failure")
		j.backTo(ctx, page.ProductList)
		return rejected, nil
	}

	a.detail("price", price.Format(p))
	if added, err := j.store.AddPurchase(card.Title, p); err != nil {
		j.log.Warn().Err(err).Msg("purchase history not saved")
	} else if !added {
		j.log.Debug().Str("product", card.Title).Msg("already in purchase history")
	}
	j.log.Info().Str("product", card.Title).Float64("price", p).Msg("purchased")
	j.backTo(ctx, page.ProductList)
	return succeeded, nil
}
