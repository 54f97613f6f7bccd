package page

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/core/coretest"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

func newClassifier(dev *coretest.FakeDevice) *Classifier {
	return NewClassifier(dev, coretest.FastLive(), session.New(zerolog.Nop()), zerolog.Nop())
}

func TestClassifyCannedScreens(t *testing.T) {
	tests := []struct {
		name string
		root *core.Node
		want Kind
	}{
		{"home", coretest.HomeScreen(), Home},
		{"list", coretest.ListScreen(coretest.Card{Title: "A", Price: "¥0.3", X: 0, Y: 400}, coretest.Card{Title: "B", Price: "¥0.9", X: 540, Y: 400}), ProductList},
		{"detail", coretest.DetailScreen("¥12.9"), ProductDetail},
		{"spec popup", coretest.SpecScreen("¥12.9"), SpecificationPopup},
		{"personal", coretest.PersonalScreen(), PersonalCenter},
		{"pending payment", coretest.PendingPaymentScreen(), PendingPayment},
		{"favorites", coretest.FavoritesScreen(coretest.Card{Title: "手机壳", Price: "¥3.5", Y: 300}), FavoriteList},
		{"blank", coretest.Root(), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := coretest.Static(tt.root)
			assert.Equal(t, tt.want, newClassifier(dev).ClassifyOnce(context.Background()))
		})
	}
}

func TestClassifyPendingDelivery(t *testing.T) {
	root := coretest.Root(coretest.OrderTabs()...)
	root.AppendChild(coretest.Text("数据线", 40, 500, 600, 60))
	root.AppendChild(coretest.Button("查看物流", 600, 700, 200, 80))

	dev := coretest.Static(root)
	assert.Equal(t, PendingDelivery, newClassifier(dev).ClassifyOnce(context.Background()))
}

func TestHomeNeedsTwoOfThreeAnchors(t *testing.T) {
	// Home tab alone is not enough.
	onlyTab := coretest.Root(coretest.Button("首页", 0, 2250, 216, 150))
	dev := coretest.Static(onlyTab)
	assert.Equal(t, Unknown, newClassifier(dev).ClassifyOnce(context.Background()))

	// Search box without the home tab is not enough either.
	noTab := coretest.Root(
		coretest.Button("搜索", 100, 120, 880, 100),
		coretest.Text("为你推荐", 40, 600, 300, 60),
	)
	dev = coretest.Static(noTab)
	assert.NotEqual(t, Home, newClassifier(dev).ClassifyOnce(context.Background()))
}

func TestClassifyScrollsToRevealAnchors(t *testing.T) {
	scrolled := false
	dev := coretest.New(func() *core.Node {
		if scrolled {
			return coretest.HomeScreen()
		}
		// Search box and recommend label scrolled off the top.
		return coretest.Root(coretest.BottomNav())
	})
	dev.OnSwipe = func(s coretest.SwipeCall) {
		if s.Y2 > s.Y1 {
			scrolled = true
		}
	}

	c := newClassifier(dev)
	assert.Equal(t, Home, c.Classify(context.Background()))
	require.Len(t, dev.Swipes, 1)
	assert.Greater(t, dev.Swipes[0].Y2, dev.Swipes[0].Y1, "should drag content downward")
}

func TestClassifyScrollIsBounded(t *testing.T) {
	dev := coretest.Static(coretest.Root())
	c := newClassifier(dev)

	assert.Equal(t, Unknown, c.Classify(context.Background()))
	assert.Len(t, dev.Swipes, coretest.FastConfig().Scan.ClassifyScrollTry)
}

func TestIs(t *testing.T) {
	dev := coretest.Static(coretest.DetailScreen("¥12.9"))
	c := newClassifier(dev)

	assert.True(t, c.Is(context.Background(), ProductDetail))
	assert.False(t, c.Is(context.Background(), Home))
	assert.False(t, c.Is(context.Background(), Unknown))
}

func TestClassifyStopsWhenStopRequested(t *testing.T) {
	dev := coretest.Static(coretest.Root())
	ctl := session.New(zerolog.Nop())
	ctl.RequestStop()
	c := NewClassifier(dev, coretest.FastLive(), ctl, zerolog.Nop())

	assert.Equal(t, Unknown, c.Classify(context.Background()))
	assert.Len(t, dev.Swipes, 1, "no further scrolling after the stop")
}

func TestDetailEvidence(t *testing.T) {
	c := newClassifier(coretest.Static(coretest.DetailScreen("¥12.9")))
	assert.GreaterOrEqual(t, c.DetailEvidence(context.Background()), DetailThreshold)

	c = newClassifier(coretest.Static(coretest.HomeScreen()))
	assert.Less(t, c.DetailEvidence(context.Background()), DetailThreshold)

	// Absence of home anchors alone is weak evidence.
	c = newClassifier(coretest.Static(coretest.Root()))
	assert.Equal(t, 1, c.DetailEvidence(context.Background()))
}

func TestWaitForDetail(t *testing.T) {
	loaded := 0
	dev := coretest.New(func() *core.Node {
		loaded++
		if loaded < 3 {
			return coretest.Root()
		}
		return coretest.DetailScreen("¥5")
	})
	assert.True(t, newClassifier(dev).WaitForDetail(context.Background(), 5*time.Second))
}

func TestKindString(t *testing.T) {
	for k := Unknown; k <= FavoriteList; k++ {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, Unknown, ParseKind("nope"))
}
