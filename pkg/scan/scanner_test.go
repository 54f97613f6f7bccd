package scan

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/core/coretest"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/price"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

func newScanner(dev core.Device) *Scanner {
	live := coretest.FastLive()
	ctl := session.New(zerolog.Nop())
	return NewScanner(dev, page.NewClassifier(dev, live, ctl, zerolog.Nop()), live, ctl, zerolog.Nop())
}

func rangeWithPromoList() *core.Node {
	return coretest.ListScreen(
		coretest.Card{Title: "A", Price: "¥0.3", X: 0, Y: 400},
		coretest.Card{Title: "B", Price: "¥5.0 立减2元", X: 540, Y: 400},
		coretest.Card{Title: "C", Price: "¥0.9", X: 0, Y: 1150},
	)
}

func TestScanDropsPromotionalAfterParsing(t *testing.T) {
	dev := coretest.Static(coretest.Root(
		coretest.Text("¥0.8 立减", 0, 1000, 200, 50),
		coretest.Text("1.6万人拼", 0, 1100, 200, 50),
		coretest.Text("¥12.5", 0, 1200, 200, 50),
		coretest.Text("29.9元", 0, 1300, 200, 50),
		coretest.Text("规格", 0, 1400, 200, 50),
	))

	got := newScanner(dev).ScanForPriceCandidates(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, 12.5, got[0].Price)
	assert.Equal(t, 29.9, got[1].Price)
}

func TestPickSkipsBelowRangeAndPromotional(t *testing.T) {
	dev := coretest.Static(rangeWithPromoList())
	s := newScanner(dev)

	cands := s.ScanForPriceCandidates(context.Background())
	for _, c := range cands {
		assert.NotContains(t, c.RawText, "立减", "promotional candidate must be dropped")
	}

	rng := price.Range{Min: 0.5, Max: 1.0}
	c, ok := s.Pick(context.Background(), rng, NewHistory(100, 40, true), PickOptions{})
	require.True(t, ok)
	assert.Equal(t, "¥0.9", c.RawText)
	assert.Equal(t, 0.9, c.Price)
}

func TestPickSkipsTopBandAndHistory(t *testing.T) {
	dev := coretest.Static(coretest.Root(
		coretest.Text("¥0.7", 0, 100, 200, 50),  // inside search bar band
		coretest.Text("¥0.8", 0, 1000, 200, 50), // already processed
		coretest.Text("¥0.6", 0, 1500, 200, 50),
	))
	s := newScanner(dev)
	hist := NewHistory(100, 40, true)
	hist.Add(100, 1025, "¥0.8")

	c, ok := s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1}, hist, PickOptions{})
	require.True(t, ok)
	assert.Equal(t, "¥0.6", c.RawText)

	_, ok = s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1}, hist, PickOptions{
		Skip: func(c Candidate) bool { return c.Price == 0.6 },
	})
	assert.False(t, ok)
}

func TestFindClickableRegionPrefersBoundedAncestor(t *testing.T) {
	dev := coretest.Static(rangeWithPromoList())
	s := newScanner(dev)
	c, ok := s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1.0}, nil, PickOptions{})
	require.True(t, ok)

	target, ok := s.FindClickableRegionNear(context.Background(), c)
	require.True(t, ok)
	assert.Equal(t, ViaAncestor, target.Via)
	assert.Equal(t, 250, target.X)
	assert.Equal(t, 1500, target.Y)
}

func TestFindClickableRegionFallsBackToImage(t *testing.T) {
	// Full-width clickable container must be ignored.
	root := coretest.Root(coretest.Group(0, 0, 1080, 2400, true,
		coretest.Group(0, 400, 500, 700, false,
			coretest.Image("", 10, 410, 480, 480, false),
			coretest.Image("", 10, 950, 40, 40, false), // icon, too small
			coretest.Text("¥0.9", 10, 980, 200, 60),
		),
	))
	dev := coretest.Static(root)
	s := newScanner(dev)
	cands := s.ScanForPriceCandidates(context.Background())
	require.Len(t, cands, 1)

	target, ok := s.FindClickableRegionNear(context.Background(), cands[0])
	require.True(t, ok)
	assert.Equal(t, ViaImage, target.Via)
	assert.Equal(t, 250, target.X)
	assert.Equal(t, 650, target.Y)
}

func TestFindClickableRegionSyntheticPoint(t *testing.T) {
	dev := coretest.Static(coretest.Root(coretest.Text("¥0.9", 400, 1000, 200, 60)))
	s := newScanner(dev)
	cands := s.ScanForPriceCandidates(context.Background())
	require.Len(t, cands, 1)

	target, ok := s.FindClickableRegionNear(context.Background(), cands[0])
	require.True(t, ok)
	assert.Equal(t, ViaSynthetic, target.Via)
	assert.Equal(t, Target{X: 500, Y: 1030 - syntheticOffsetPx, Via: ViaSynthetic}, target)
}

func TestClickAndVerify(t *testing.T) {
	app := coretest.NewApp("com.example", "shop", "list")
	app.Screen("list", rangeWithPromoList).
		Screen("detail", func() *core.Node { return coretest.DetailScreen("¥0.9") }).
		Tap("list", "C", "detail")
	app.Current = "list"
	s := newScanner(app)
	hist := NewHistory(100, 40, true)

	c, ok := s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1.0}, hist, PickOptions{})
	require.True(t, ok)
	// Tap the title inside the card so the simulator resolves label "C".
	target := Target{X: 100, Y: 1680, Via: ViaAncestor}

	assert.True(t, s.ClickAndVerify(context.Background(), c, target, hist))
	assert.Equal(t, 1, hist.Len())
}

func TestClickAndVerifyRecordsFailedPosition(t *testing.T) {
	dev := coretest.Static(rangeWithPromoList())
	s := newScanner(dev)
	hist := NewHistory(100, 40, true)

	c, ok := s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1.0}, hist, PickOptions{})
	require.True(t, ok)
	target, _ := s.FindClickableRegionNear(context.Background(), c)

	assert.False(t, s.ClickAndVerify(context.Background(), c, target, hist))
	assert.True(t, hist.Seen(c.X, c.Y, c.RawText))

	_, ok = s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1.0}, hist, PickOptions{})
	assert.False(t, ok, "a dead candidate is not offered again")
}

func TestMinPrice(t *testing.T) {
	dev := coretest.Static(coretest.DetailScreen("¥12.9", "¥8.5", "券后 ¥3"))
	p, ok := newScanner(dev).MinPrice(context.Background())
	require.True(t, ok)
	assert.Equal(t, 8.5, p)
}

func TestCardOf(t *testing.T) {
	dev := coretest.Static(rangeWithPromoList())
	s := newScanner(dev)
	c, ok := s.Pick(context.Background(), price.Range{Min: 0.5, Max: 1.0}, nil, PickOptions{})
	require.True(t, ok)

	card := s.CardOf(c)
	require.NotNil(t, card)
	f := ExtractCard(card, nil, nil)
	assert.Equal(t, "C", f.Title)
}
