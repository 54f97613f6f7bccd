package nav

import (
	"context"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/page"
)

// Search goes home, enters keyword in the search box and submits, ending
// on a product list.
func (n *Navigator) Search(ctx context.Context, keyword string) bool {
	if !n.GoHome(ctx) && !n.NavigateTo(ctx, page.Home) {
		return false
	}
	cfg := n.live.Get()

	if !n.tap(ctx, hop{labels: func(l config.Labels) []string { return l.SearchBox }, band: page.TopBar, contains: true}) {
		n.log.Warn().Msg("search box not found")
		return false
	}
	if err := n.dev.InputText(ctx, keyword); err != nil {
		n.log.Warn().Err(err).Msg("typing keyword failed")
		return false
	}
	if !n.sleep.Sleep(ctx, cfg.Timing.AfterClick.D()) {
		return false
	}

	// The submit button sits right of the input; pick the rightmost match.
	v, ok := n.view(ctx)
	if !ok {
		return false
	}
	var submit core.Element
	for _, e := range v.WithLabel(cfg.Labels.SearchButton, page.TopBar, false) {
		if submit == nil || e.Bounds().X > submit.Bounds().X {
			submit = e
		}
	}
	if submit == nil {
		n.log.Warn().Msg("search button not found")
		return false
	}
	if err := core.ClickElement(ctx, n.dev, submit); err != nil {
		return false
	}
	if !n.sleep.Sleep(ctx, cfg.Timing.PageLoad.D()) {
		return false
	}

	if !n.cls.Is(ctx, page.ProductList) {
		n.log.Warn().Str("keyword", keyword).Msg("search did not reach a product list")
		return false
	}
	n.log.Info().Str("keyword", keyword).Msg("search results shown")
	return true
}
