package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/core/coretest"
	"github.com/devicelab-dev/cartpilot/pkg/courier"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
)

type parcel struct {
	Product string
	// Copies is what each copy button of the logistics page puts on the
	// clipboard; an empty entry copies nothing.
	Copies []string
}

const parcelTop, parcelPitch = 400, 400

// newOrders simulates the pending-delivery order list with one logistics
// page per parcel.
func newOrders(parcels ...parcel) *coretest.App {
	app := coretest.NewApp(shopPkg, "拼多多", "home")
	app.Screen("home", coretest.HomeScreen).
		Screen("personal", coretest.PersonalScreen).
		Screen("delivery", func() *core.Node {
			root := coretest.Root(coretest.OrderTabs()...)
			for i, p := range parcels {
				y := parcelTop + i*parcelPitch
				root.AppendChild(coretest.Text("优选好物旗舰店", 40, y, 500, 60))
				root.AppendChild(coretest.Text(p.Product, 40, y+70, 800, 60))
				root.AppendChild(coretest.Text("¥9.9", 40, y+140, 200, 60))
				root.AppendChild(coretest.Button("查看物流", 600, y+220, 200, 80))
				root.AppendChild(coretest.Button("确认收货", 840, y+220, 200, 80))
			}
			return root
		}).
		Tap("home", "个人中心", "personal").
		Tap("personal", "待发货", "delivery").
		Tap("personal", "待收货", "delivery").
		BackTo("delivery", "personal").
		BackTo("personal", "home")

	for i, p := range parcels {
		name := fmt.Sprintf("logistics-%d", i)
		copies := p.Copies
		app.Screen(name, func() *core.Node {
			root := coretest.Root(coretest.Text("物流详情", 400, 120, 280, 80))
			for k := range copies {
				y := 400 + k*200
				root.AppendChild(coretest.Text(fmt.Sprintf("信息%d", k+1), 40, y, 700, 60))
				root.AppendChild(coretest.Button("复制", 900, y, 140, 60))
			}
			return root
		}).BackTo(name, "delivery")
	}

	app.OnTap = func(screen, label string) {
		last := app.Clicks[len(app.Clicks)-1]
		switch {
		case screen == "delivery" && label == "查看物流":
			i := (last[1] - parcelTop) / parcelPitch
			if i >= 0 && i < len(parcels) {
				app.Current = fmt.Sprintf("logistics-%d", i)
			}
		case label == "复制":
			var i int
			if _, err := fmt.Sscanf(screen, "logistics-%d", &i); err != nil {
				return
			}
			k := (last[1] - 400) / 200
			if k >= 0 && k < len(parcels[i].Copies) && parcels[i].Copies[k] != "" {
				app.SetClip(parcels[i].Copies[k])
			}
		}
	}
	app.Current = "home"
	app.Package = shopPkg
	return app
}

func TestDeliveriesCollectsTrackingNumbers(t *testing.T) {
	app := newOrders(
		parcel{Product: "加厚透明手机壳", Copies: []string{"运单号：JT1234567890123"}},
		parcel{Product: "磁吸数据线收纳", Copies: []string{"JT1234567890123"}},
		parcel{Product: "桌面理线器夹子", Copies: []string{"", "浙江省杭州市西湖区文三路"}},
	)
	f := newFixture(t, app, nil)

	sum, err := f.runner.Run(context.Background(), flow.Request{Kind: flow.Delivery})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Requested)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)

	got, err := f.store.Deliveries()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "加厚透明手机壳", got[0].Product)
	assert.Equal(t, "JT1234567890123", got[0].Number)
	assert.Equal(t, string(courier.JiTu), got[0].Courier)
	assert.Equal(t, "桌面理线器夹子", got[1].Product)
	assert.Empty(t, got[1].Number)
	assert.Equal(t, "delivery", app.Current)
}

func TestDeliveriesHonoursCount(t *testing.T) {
	app := newOrders(
		parcel{Product: "加厚透明手机壳", Copies: []string{"SF1234567890"}},
		parcel{Product: "磁吸数据线收纳", Copies: []string{"YT9876543210123"}},
	)
	f := newFixture(t, app, nil)

	sum, err := f.runner.Run(context.Background(), flow.Request{Kind: flow.Delivery, Count: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Requested)
	assert.Equal(t, 1, sum.Succeeded)
	got, err := f.store.Deliveries()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, string(courier.SF), got[0].Courier)
}

func TestPairLogistics(t *testing.T) {
	labels := config.Default().Labels
	root := coretest.Root(coretest.OrderTabs()...)
	root.AppendChild(coretest.Text("优选好物旗舰店", 40, 400, 500, 60))
	root.AppendChild(coretest.Text("加厚透明手机壳", 40, 470, 800, 60))
	root.AppendChild(coretest.Text("¥9.9", 40, 540, 200, 60))
	root.AppendChild(coretest.Button("查看物流", 600, 620, 200, 80))
	root.AppendChild(coretest.Button("确认收货", 840, 620, 200, 80))
	root.AppendChild(coretest.Text("磁吸数据线收纳", 40, 870, 800, 60))
	root.AppendChild(coretest.Button("查看物流", 600, 1020, 200, 80))
	// A button with nothing above it is dropped.
	orphan := coretest.Root(coretest.Button("查看物流", 600, 100, 200, 80))

	pairs := pairLogistics(core.Flatten(root), labels)
	require.Len(t, pairs, 2)
	assert.Equal(t, "加厚透明手机壳", pairs[0].Product)
	assert.Equal(t, "磁吸数据线收纳", pairs[1].Product)

	assert.Empty(t, pairLogistics(core.Flatten(orphan), labels))
}

func TestDeliveriesRepeatOrdersOfOneProduct(t *testing.T) {
	app := newOrders(
		parcel{Product: "加厚透明手机壳", Copies: []string{"SF1234567890"}},
		parcel{Product: "加厚透明手机壳", Copies: []string{"YT9876543210123"}},
	)
	f := newFixture(t, app, nil)

	sum, err := f.runner.Run(context.Background(), flow.Request{Kind: flow.Delivery})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Requested)
	assert.Equal(t, 2, sum.Succeeded)
	got, err := f.store.Deliveries()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SF1234567890", got[0].Number)
	assert.Equal(t, "YT9876543210123", got[1].Number)
	assert.Equal(t, "加厚透明手机壳", got[1].Product)
}

func TestPairKeys(t *testing.T) {
	pairs := []logisticsPair{{Product: "手机壳"}, {Product: "数据线"}, {Product: "手机壳"}}
	assert.Equal(t, []string{"手机壳#0", "数据线#0", "手机壳#1"}, pairKeys(pairs))
}
