package nav

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// maxBacks bounds the back presses GoHome spends looking for the home tab.
const maxBacks = 4

// hop is one tap on the way to a page.
type hop struct {
	labels   func(l config.Labels) []string
	band     page.Band
	contains bool
}

var (
	homeHop     = hop{func(l config.Labels) []string { return l.HomeTab }, page.BottomNav, false}
	personalHop = hop{func(l config.Labels) []string { return l.PersonalTab }, page.BottomNav, false}
	paymentHop  = hop{func(l config.Labels) []string { return l.PendingPayment }, page.Anywhere, false}
	deliveryHop = hop{func(l config.Labels) []string { return l.PendingDelivery }, page.Anywhere, false}
	favoriteHop = hop{func(l config.Labels) []string { return l.Favorites }, page.Anywhere, false}
)

// routes lists the taps that reach each target starting from the home
// bottom navigation.
var routes = map[page.Kind][]hop{
	page.Home:            {homeHop},
	page.PersonalCenter:  {personalHop},
	page.PendingPayment:  {personalHop, paymentHop},
	page.PendingDelivery: {personalHop, deliveryHop},
	page.FavoriteList:    {personalHop, favoriteHop},
}

// Navigator drives the app to a target page.
type Navigator struct {
	dev      core.Device
	cls      *page.Classifier
	launcher *Launcher
	live     *config.Live
	sleep    session.Sleeper
	log      zerolog.Logger
}

// NewNavigator wires a navigator.
func NewNavigator(dev core.Device, cls *page.Classifier, launcher *Launcher, live *config.Live, sleep session.Sleeper, log zerolog.Logger) *Navigator {
	return &Navigator{dev: dev, cls: cls, launcher: launcher, live: live, sleep: sleep, log: log}
}

// Classifier returns the classifier used to confirm arrival.
func (n *Navigator) Classifier() *page.Classifier { return n.cls }

// Launcher returns the app launcher.
func (n *Navigator) Launcher() *Launcher { return n.launcher }

// NavigateTo reaches target by direct action, then via the home page, then
// by restarting the app. Each strategy ends by re-classifying. A false
// result means the current page is unknown.
func (n *Navigator) NavigateTo(ctx context.Context, target page.Kind) bool {
	if _, ok := routes[target]; !ok {
		n.log.Warn().Str("target", target.String()).Msg("no route to page")
		return false
	}
	if n.cls.ClassifyOnce(ctx) == target {
		return true
	}

	via, ok := TryInOrder(ctx, n.log,
		Strategy{Name: "direct", Run: func(ctx context.Context) bool {
			return n.direct(ctx, target)
		}},
		Strategy{Name: "indirect", Run: func(ctx context.Context) bool {
			return n.GoHome(ctx) && n.direct(ctx, target)
		}},
		Strategy{Name: "recovery", Run: func(ctx context.Context) bool {
			return n.launcher.Restart(ctx) && n.direct(ctx, target)
		}},
	)
	if !ok {
		n.log.Warn().Str("target", target.String()).Msg("navigation failed")
		return false
	}
	n.log.Info().Str("target", target.String()).Str("via", via).Msg("navigated")
	return true
}

// direct starts from the deepest hop of the route whose anchor is visible
// and taps through the rest, then confirms the page.
func (n *Navigator) direct(ctx context.Context, target page.Kind) bool {
	if n.cls.ClassifyOnce(ctx) == target {
		return true
	}
	route := routes[target]
	labels := n.live.Get().Labels

	v, ok := n.view(ctx)
	if !ok {
		return false
	}
	start := -1
	for i := len(route) - 1; i >= 0; i-- {
		if v.HasLabel(route[i].labels(labels), route[i].band, route[i].contains) {
			start = i
			break
		}
	}
	if start < 0 {
		return false
	}

	for _, h := range route[start:] {
		if !n.tap(ctx, h) {
			return false
		}
	}
	return n.cls.Is(ctx, target)
}

// tap clicks the first visible element for h and waits for the page.
func (n *Navigator) tap(ctx context.Context, h hop) bool {
	cfg := n.live.Get()
	v, ok := n.view(ctx)
	if !ok {
		return false
	}
	found := v.WithLabel(h.labels(cfg.Labels), h.band, h.contains)
	if len(found) == 0 {
		return false
	}
	if err := core.ClickElement(ctx, n.dev, found[0]); err != nil {
		n.log.Debug().Err(err).Msg("tap failed")
		return false
	}
	return n.sleep.Sleep(ctx, cfg.Timing.PageLoad.D())
}

func (n *Navigator) view(ctx context.Context) (*page.View, bool) {
	elems, err := n.dev.Snapshot(ctx)
	if err != nil {
		return nil, false
	}
	w, h := n.dev.ScreenSize()
	return page.NewView(elems, w, h), true
}

// GoHome presses back until the home tab shows, taps it and confirms.
func (n *Navigator) GoHome(ctx context.Context) bool {
	if n.cls.ClassifyOnce(ctx) == page.Home {
		return true
	}
	labels := n.live.Get().Labels
	for i := 0; i <= maxBacks; i++ {
		if v, ok := n.view(ctx); ok && v.HasLabel(labels.HomeTab, page.BottomNav, false) {
			if n.tap(ctx, homeHop) && n.cls.Is(ctx, page.Home) {
				return true
			}
		}
		if i == maxBacks || !n.Back(ctx) {
			break
		}
	}
	return n.cls.ClassifyOnce(ctx) == page.Home
}

// Back presses back and waits for the transition.
func (n *Navigator) Back(ctx context.Context) bool {
	if err := n.dev.Back(ctx); err != nil {
		n.log.Debug().Err(err).Msg("back failed")
	}
	return n.sleep.Sleep(ctx, n.live.Get().Timing.AfterBack.D())
}

// EnsureRunning launches the app when it is not in the foreground.
func (n *Navigator) EnsureRunning(ctx context.Context) bool {
	pkg, err := n.dev.CurrentPackage(ctx)
	if err == nil && pkg == n.live.Get().App.Package {
		return true
	}
	return n.launcher.Launch(ctx)
}
