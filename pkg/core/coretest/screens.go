package coretest

import "github.com/devicelab-dev/cartpilot/pkg/core"

// Canned screens of the default-labelled shopping app on a 1080x2400
// display. Each call returns a fresh tree.

// BottomNav returns the home bottom navigation bar.
func BottomNav() *core.Node {
	return Group(0, 2250, 1080, 150, false,
		Button("首页", 0, 2250, 216, 150),
		Button("推荐", 216, 2250, 216, 150),
		Button("聊天", 648, 2250, 216, 150),
		Button("个人中心", 864, 2250, 216, 150),
	)
}

// HomeScreen is the landing page.
func HomeScreen() *core.Node {
	return Root(
		Button("搜索", 100, 120, 880, 100),
		Text("为你推荐", 40, 600, 300, 60),
		BottomNav(),
	)
}

// Card is one product tile on a list page.
type Card struct {
	Title string
	Price string
	X, Y  int
}

// ListScreen is a search result page with the given cards. Each card is a
// clickable 500x700 group with an image above the title and price.
func ListScreen(cards ...Card) *core.Node {
	root := Root(
		Button("搜索", 100, 120, 880, 100),
		Text("综合", 40, 260, 120, 60),
		Text("销量", 240, 260, 120, 60),
		Text("筛选", 900, 260, 120, 60),
	)
	for _, c := range cards {
		root.AppendChild(CardNode(c))
	}
	return root
}

// CardNode builds the tile for c.
func CardNode(c Card) *core.Node {
	return Group(c.X, c.Y, 500, 700, true,
		Image("", c.X+10, c.Y+10, 480, 480, false),
		Text(c.Title, c.X+10, c.Y+500, 480, 60),
		Text(c.Price, c.X+10, c.Y+580, 200, 60),
	)
}

// DetailScreen is a product detail page with a main image, the given price
// text and extra texts (e.g. a forbidden keyword).
func DetailScreen(priceText string, extra ...string) *core.Node {
	root := Root(
		WithID(Image("商品主图", 0, 100, 1080, 1080, true), "com.xunmeng.pinduoduo:id/iv_goods_image"),
		Text(priceText, 40, 1200, 300, 80),
		Text("商品评价", 40, 1500, 300, 60),
		Button("客服", 0, 2250, 150, 150),
		Button("收藏", 150, 2250, 150, 150),
		Button("单独购买", 400, 2250, 300, 150),
		Button("发起拼单", 700, 2250, 380, 150),
	)
	for i, t := range extra {
		root.AppendChild(Text(t, 40, 1300+i*70, 900, 60))
	}
	return root
}

// SpecScreen is the SKU popup over a detail page.
func SpecScreen(priceText string) *core.Node {
	return Root(
		Image("", 40, 1000, 300, 300, true),
		Text(priceText, 380, 1050, 300, 80),
		Text("已选：默认", 380, 1150, 400, 60),
		Text("颜色分类", 40, 1400, 300, 60),
		Text("数量", 40, 1900, 200, 60),
		Button("确定", 0, 2250, 1080, 150),
	)
}

// PersonalScreen is the personal center.
func PersonalScreen() *core.Node {
	return Root(
		Text("我的订单", 40, 500, 300, 60),
		Button("待付款", 40, 620, 150, 60),
		Button("待分享", 240, 620, 150, 60),
		Button("待发货", 440, 620, 150, 60),
		Button("待收货", 640, 620, 150, 60),
		Button("评价", 840, 620, 150, 60),
		Button("商品收藏", 40, 800, 200, 60),
		BottomNav(),
	)
}

// OrderTabs returns the status tab strip of the order list.
func OrderTabs() []*core.Node {
	return []*core.Node{
		Button("全部", 0, 200, 180, 80),
		Button("待付款", 180, 200, 180, 80),
		Button("待分享", 360, 200, 180, 80),
		Button("待发货", 540, 200, 180, 80),
		Button("待收货", 720, 200, 180, 80),
	}
}

// PendingPaymentScreen lists one unpaid order.
func PendingPaymentScreen() *core.Node {
	root := Root(OrderTabs()...)
	root.AppendChild(Text("手机壳 透明", 40, 500, 800, 60))
	root.AppendChild(Button("去支付", 800, 700, 240, 80))
	return root
}

// FavoritesScreen is the favorites list with the given cards laid out as
// full-width rows.
func FavoritesScreen(rows ...Card) *core.Node {
	root := Root(Text("商品收藏", 400, 120, 280, 80))
	for _, r := range rows {
		root.AppendChild(Group(0, r.Y, 1080, 300, true,
			Image("", 20, r.Y+20, 260, 260, false),
			Text(r.Title, 300, r.Y+20, 740, 60),
			Text(r.Price, 300, r.Y+200, 200, 60),
		))
	}
	return root
}
