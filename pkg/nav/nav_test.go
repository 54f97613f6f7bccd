package nav

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/core/coretest"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

const pkg = "com.xunmeng.pinduoduo"

// newShopApp models home, personal center, the order lists, favorites, a
// search input page and a result list.
func newShopApp() *coretest.App {
	app := coretest.NewApp(pkg, "拼多多", "home")
	app.Screen("home", coretest.HomeScreen).
		Screen("personal", coretest.PersonalScreen).
		Screen("payment", coretest.PendingPaymentScreen).
		Screen("favorites", func() *core.Node {
			return coretest.FavoritesScreen(coretest.Card{Title: "手机壳", Price: "¥3.5", Y: 300})
		}).
		Screen("search-input", func() *core.Node {
			return coretest.Root(
				coretest.Text("搜索商品", 40, 120, 800, 100),
				coretest.Button("搜索", 880, 120, 180, 100),
			)
		}).
		Screen("list", func() *core.Node {
			return coretest.ListScreen(
				coretest.Card{Title: "A", Price: "¥0.3", X: 0, Y: 400},
				coretest.Card{Title: "B", Price: "¥0.9", X: 540, Y: 400},
			)
		}).
		Screen("detail", func() *core.Node { return coretest.DetailScreen("¥9.9") }).
		Tap("home", "个人中心", "personal").
		Tap("home", "搜索", "search-input").
		Tap("search-input", "搜索", "list").
		Tap("personal", "首页", "home").
		Tap("personal", "待付款", "payment").
		Tap("personal", "商品收藏", "favorites").
		BackTo("payment", "personal").
		BackTo("favorites", "personal").
		BackTo("list", "home").
		BackTo("detail", "list")
	app.Current = "home"
	app.Package = pkg
	return app
}

func newNavigator(dev core.Device) *Navigator {
	live := coretest.FastLive()
	ctl := session.New(zerolog.Nop())
	cls := page.NewClassifier(dev, live, ctl, zerolog.Nop())
	l := NewLauncher(dev, live, ctl, zerolog.Nop())
	return NewNavigator(dev, cls, l, live, ctl, zerolog.Nop())
}

func TestTryInOrder(t *testing.T) {
	var ran []string
	mk := func(name string, ok bool) Strategy {
		return Strategy{Name: name, Run: func(context.Context) bool {
			ran = append(ran, name)
			return ok
		}}
	}

	name, ok := TryInOrder(context.Background(), zerolog.Nop(), mk("a", false), mk("b", true), mk("c", true))
	assert.True(t, ok)
	assert.Equal(t, "b", name)
	assert.Equal(t, []string{"a", "b"}, ran)

	ran = nil
	_, ok = TryInOrder(context.Background(), zerolog.Nop(), mk("a", false), mk("b", false))
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestTryInOrderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	first := Strategy{Name: "a", Run: func(context.Context) bool {
		ran++
		cancel()
		return false
	}}
	second := Strategy{Name: "b", Run: func(context.Context) bool {
		ran++
		return true
	}}

	_, ok := TryInOrder(ctx, zerolog.Nop(), first, second)
	assert.False(t, ok)
	assert.Equal(t, 1, ran)
}

func TestNavigateDirectFromPersonal(t *testing.T) {
	app := newShopApp()
	app.Current = "personal"
	n := newNavigator(app)

	require.True(t, n.NavigateTo(context.Background(), page.PendingPayment))
	assert.Equal(t, "payment", app.Current)
	assert.Empty(t, app.Stopped, "direct route must not restart the app")
}

func TestNavigateFromHomeTakesFullRoute(t *testing.T) {
	app := newShopApp()
	n := newNavigator(app)

	require.True(t, n.NavigateTo(context.Background(), page.FavoriteList))
	assert.Equal(t, "favorites", app.Current)
	assert.Equal(t, []string{"home:个人中心", "personal:商品收藏"}, app.Tapped)
}

func TestNavigateIndirectGoesHomeFirst(t *testing.T) {
	app := newShopApp()
	app.Current = "detail"
	n := newNavigator(app)

	require.True(t, n.NavigateTo(context.Background(), page.PersonalCenter))
	assert.Equal(t, "personal", app.Current)
	assert.GreaterOrEqual(t, app.Backs, 2, "detail -> list -> home")
	assert.Empty(t, app.Stopped)
}

func TestNavigateRecoveryRestartsApp(t *testing.T) {
	app := newShopApp()
	app.Screen("stuck", func() *core.Node { return coretest.Root(coretest.Text("加载中", 400, 1000, 200, 60)) })
	app.Current = "stuck"
	n := newNavigator(app)

	require.True(t, n.NavigateTo(context.Background(), page.PersonalCenter))
	assert.Equal(t, []string{pkg}, app.Stopped)
	assert.Equal(t, "personal", app.Current)
}

func TestNavigateUnknownTargetFails(t *testing.T) {
	n := newNavigator(newShopApp())
	assert.False(t, n.NavigateTo(context.Background(), page.ProductDetail))
}

func TestNavigateAlreadyThere(t *testing.T) {
	app := newShopApp()
	n := newNavigator(app)
	require.True(t, n.NavigateTo(context.Background(), page.Home))
	assert.Empty(t, app.Clicks)
}

func TestSearch(t *testing.T) {
	app := newShopApp()
	n := newNavigator(app)

	require.True(t, n.Search(context.Background(), "手机壳"))
	assert.Equal(t, "list", app.Current)
	assert.Equal(t, []string{"手机壳"}, app.Typed)
	assert.Equal(t, []string{"home:搜索", "search-input:搜索"}, app.Tapped)
}

func TestLaunchByPackage(t *testing.T) {
	app := newShopApp()
	app.Current = coretest.Launcher
	app.Package = "com.android.launcher"
	l := NewLauncher(app, coretest.FastLive(), session.New(zerolog.Nop()), zerolog.Nop())

	require.True(t, l.Launch(context.Background()))
	assert.Equal(t, []string{"launch " + pkg}, app.Launches)
	assert.Equal(t, "home", app.Current)
}

// brokenLaunch fails LaunchPackage so the next strategies run.
type brokenLaunch struct{ *coretest.App }

func (b brokenLaunch) LaunchPackage(ctx context.Context, p string) error {
	return errors.New("monkey aborted")
}

func TestLaunchFallsBackToDisplayName(t *testing.T) {
	app := newShopApp()
	app.Current = coretest.Launcher
	app.Package = "com.android.launcher"
	dev := brokenLaunch{app}
	l := NewLauncher(dev, coretest.FastLive(), session.New(zerolog.Nop()), zerolog.Nop())

	require.True(t, l.Launch(context.Background()))
	assert.Equal(t, 1, app.Homes)
	assert.Contains(t, app.Tapped, coretest.Launcher+":拼多多")
	assert.Equal(t, "home", app.Current)
}

func TestInForegroundRetriesThenUsesHomeLabel(t *testing.T) {
	app := newShopApp()
	app.Package = "" // window manager not reporting yet
	live := coretest.FastLive()
	l := NewLauncher(app, live, session.New(zerolog.Nop()), zerolog.Nop())

	assert.True(t, l.InForeground(context.Background()))
	assert.Equal(t, live.Get().Timing.ForegroundRetries, app.PackageReads)
}

func TestInForegroundFailsOnForeignScreen(t *testing.T) {
	app := newShopApp()
	app.Current = coretest.Launcher
	app.Package = ""
	l := NewLauncher(app, coretest.FastLive(), session.New(zerolog.Nop()), zerolog.Nop())

	assert.False(t, l.InForeground(context.Background()))
}

func TestRestart(t *testing.T) {
	app := newShopApp()
	app.Current = "personal"
	l := NewLauncher(app, coretest.FastLive(), session.New(zerolog.Nop()), zerolog.Nop())

	require.True(t, l.Restart(context.Background()))
	assert.Equal(t, []string{pkg}, app.Stopped)
	assert.Equal(t, "home", app.Current)
}

func TestLaunchStopsOnStopRequest(t *testing.T) {
	app := newShopApp()
	app.Current = coretest.Launcher
	ctl := session.New(zerolog.Nop())
	ctl.RequestStop()
	l := NewLauncher(app, coretest.FastLive(), ctl, zerolog.Nop())

	assert.False(t, l.Launch(context.Background()))
}
