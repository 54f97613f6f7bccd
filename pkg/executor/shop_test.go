package executor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/core/coretest"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/session"
	"github.com/devicelab-dev/cartpilot/pkg/store"
)

const shopPkg = "com.xunmeng.pinduoduo"

// product is one search result of the simulated shop.
type product struct {
	Title string
	Price string
	X, Y  int
	// Detail holds extra texts shown on the product page.
	Detail []string
	// Variants are the carousel prices of the spec popup, index 0 first.
	Variants []float64
}

// shop simulates search, a result list and, per product, a detail page,
// spec popup, order page and payment result.
type shop struct {
	*coretest.App
	products  []product
	variant   map[string]int
	favorited map[string]bool
	// favoriteWorks makes the detail page confirm a favorite tap.
	favoriteWorks bool
	payResult     string
}

// productCard is a result tile whose image is described by the title, so a
// tap on the image resolves to the product.
func productCard(p product) *core.Node {
	return coretest.Group(p.X, p.Y, 500, 700, true,
		coretest.Image(p.Title, p.X+10, p.Y+10, 480, 480, false),
		coretest.Text(p.Title, p.X+10, p.Y+500, 480, 60),
		coretest.Text(p.Price, p.X+10, p.Y+580, 200, 60),
	)
}

// rangeWithPromoList is a list with one product below the range, one
// promotional price and one match.
func rangeWithPromoList() []product {
	return []product{
		{Title: "A 手机支架", Price: "¥0.3", X: 0, Y: 400},
		{Title: "B 充电头", Price: "¥5.0 立减2元", X: 540, Y: 400},
		{Title: "C 数据线", Price: "¥0.9", X: 0, Y: 1150},
	}
}

func newShop(products ...product) *shop {
	s := &shop{
		products:      products,
		variant:       map[string]int{},
		favorited:     map[string]bool{},
		favoriteWorks: true,
		payResult:     "支付成功",
	}
	app := coretest.NewApp(shopPkg, "拼多多", "home")
	s.App = app
	app.Screen("home", coretest.HomeScreen).
		Screen("search-input", func() *core.Node {
			return coretest.Root(
				coretest.Text("搜索商品", 40, 120, 800, 100),
				coretest.Button("搜索", 880, 120, 180, 100),
			)
		}).
		Screen("list", func() *core.Node {
			root := coretest.ListScreen()
			for _, p := range s.products {
				root.AppendChild(productCard(p))
			}
			return root
		}).
		Tap("home", "搜索", "search-input").
		Tap("search-input", "搜索", "list").
		BackTo("list", "home")

	for _, p := range products {
		p := p
		detail, spec, order, paid := "detail:"+p.Title, "spec:"+p.Title, "order:"+p.Title, "paid:"+p.Title
		share := "share:" + p.Title
		app.Screen(detail, func() *core.Node {
			extra := append([]string(nil), p.Detail...)
			if s.favorited[p.Title] {
				extra = append(extra, "收藏成功")
			}
			root := coretest.DetailScreen(p.Price, extra...)
			root.AppendChild(coretest.Button("分享", 900, 120, 150, 100))
			return root
		}).
			Screen(share, func() *core.Node {
				return coretest.Root(
					coretest.Button("微信", 100, 1900, 200, 150),
					coretest.Button("复制链接", 400, 1900, 260, 150),
				)
			}).
			Screen(spec, func() *core.Node { return coretest.SpecScreen(s.specPrice(p)) }).
			Screen(order, func() *core.Node {
				return coretest.Root(
					coretest.Text("确认订单", 400, 120, 280, 80),
					coretest.Text(s.specPrice(p), 40, 1800, 300, 80),
					coretest.Button("立即支付", 700, 2250, 380, 150),
				)
			}).
			Screen(paid, func() *core.Node {
				return coretest.Root(coretest.Text(s.payResult, 300, 1000, 480, 80))
			}).
			Tap("list", p.Title, detail).
			Tap(detail, "发起拼单", spec).
			Tap(spec, "确定", order).
			Tap(order, "立即支付", paid).
			Tap(detail, "分享", share).
			Tap(share, "复制链接", detail).
			BackTo(share, detail).
			BackTo(detail, "list").
			BackTo(spec, detail).
			BackTo(order, spec).
			BackTo(paid, detail)
	}

	app.OnTap = func(screen, label string) {
		switch {
		case label == "收藏" && strings.HasPrefix(screen, "detail:") && s.favoriteWorks:
			s.favorited[strings.TrimPrefix(screen, "detail:")] = true
		case label == "复制链接" && strings.HasPrefix(screen, "share:"):
			app.SetClip("【拼多多】" + strings.TrimPrefix(screen, "share:") + " " + s.link(strings.TrimPrefix(screen, "share:")))
		}
	}
	app.OnSwipe = func(c coretest.SwipeCall) {
		if !strings.HasPrefix(app.Current, "spec:") || !c.Left() {
			return
		}
		title := strings.TrimPrefix(app.Current, "spec:")
		s.variant[title]++
	}
	app.Current = "home"
	app.Package = shopPkg
	return s
}

// link is the share link of the product titled title.
func (s *shop) link(title string) string {
	for i, p := range s.products {
		if p.Title == title {
			return fmt.Sprintf("https://mobile.yangkeduo.com/goods.html?goods_id=%d", 1000+i)
		}
	}
	return ""
}

func (s *shop) specPrice(p product) string {
	if len(p.Variants) == 0 {
		return p.Price
	}
	i := s.variant[p.Title]
	if i >= len(p.Variants) {
		i = len(p.Variants) - 1
	}
	return "¥" + price.Format(p.Variants[i])
}

// taps returns the recorded taps after the search.
func (s *shop) taps() []string {
	var out []string
	for _, t := range s.Tapped {
		if !strings.HasPrefix(t, "home:") && !strings.HasPrefix(t, "search-input:") {
			out = append(out, t)
		}
	}
	return out
}

// fixture is a runner over a simulated device with fast timings.
type fixture struct {
	runner *Runner
	ctrl   *session.Controller
	store  *store.Store
	cfg    *config.Config
}

func newFixture(t *testing.T, dev core.Device, mutate func(o *Options, cfg *config.Config)) *fixture {
	t.Helper()
	cfg := coretest.FastConfig()
	cfg.Scan.MaxScrolls = 1
	cfg.API.UserName = "tester"
	ctrl := session.New(zerolog.Nop())
	st := store.Open(t.TempDir())
	opts := Options{
		Device:  dev,
		Session: ctrl,
		Store:   st,
		Logger:  zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts, cfg)
	}
	opts.Live = config.NewLive(cfg)
	return &fixture{runner: New(opts), ctrl: ctrl, store: st, cfg: cfg}
}
