package config

import (
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/price"
)

// Default returns the built-in configuration for the target shopping app.
func Default() *Config {
	return &Config{
		Device: Device{
			HostPort:        7001,
			ServerPort:      6790,
			InputsPerSecond: 5,
		},
		App: App{
			Package:     "com.xunmeng.pinduoduo",
			DisplayName: "拼多多",
			Activity:    "com.xunmeng.pinduoduo/com.xunmeng.pinduoduo.ui.activity.MainFrameActivity",
		},
		Timing: Timing{
			FindTimeout:       Duration(2 * time.Second),
			PageLoad:          Duration(2 * time.Second),
			AfterClick:        Duration(1500 * time.Millisecond),
			AfterSwipe:        Duration(800 * time.Millisecond),
			AfterBack:         Duration(1200 * time.Millisecond),
			LaunchWait:        Duration(4 * time.Second),
			ForegroundPoll:    Duration(800 * time.Millisecond),
			ForegroundRetries: 5,
			SwipeDurationMs:   300,
		},
		Labels: Labels{
			HomeTab:          []string{"首页"},
			SearchBox:        []string{"搜索", "search"},
			SearchButton:     []string{"搜索"},
			Recommend:        []string{"推荐", "为你推荐"},
			PersonalTab:      []string{"个人中心", "我的"},
			PendingPayment:   []string{"待付款"},
			PendingDelivery:  []string{"待收货", "待发货"},
			Favorites:        []string{"商品收藏", "我的收藏", "收藏"},
			ListAnchors:      []string{"综合", "销量", "筛选", "价格"},
			DetailAnchors:    []string{"立即购买", "发起拼单", "单独购买", "收藏", "评价", "商品评价", "客服", "进店"},
			SpecAnchors:      []string{"已选", "请选择", "规格", "数量", "颜色分类", "确定"},
			PersonalAnchors:  []string{"我的订单", "待付款", "待分享", "待发货", "待收货", "评价"},
			BuyButtons:       []string{"发起拼单", "立即购买", "单独购买", "去购买"},
			PayButtons:       []string{"立即支付", "确认支付", "去支付", "提交订单"},
			PayFailure:       []string{"支付失败", "库存不足", "已售罄", "无法购买", "下单失败"},
			FavoriteButtons:  []string{"收藏", "加入收藏", "收藏商品"},
			FavoriteDescs:    []string{"收藏", "favorite", "heart", "喜欢"},
			FavoriteSuccess:  []string{"收藏成功", "已收藏", "已加入收藏"},
			FavoriteFailure:  []string{"收藏失败", "操作失败", "取消收藏成功"},
			DeleteButtons:    []string{"删除", "取消收藏"},
			ConfirmButtons:   []string{"确定", "确认", "删除"},
			SettleButtons:    []string{"结算", "去结算", "合并支付"},
			SelectItem:       []string{"选择", "勾选"},
			Logistics:        []string{"查看物流", "物流详情"},
			CopyButtons:      []string{"复制"},
			ShareButtons:     []string{"分享", "分享商品"},
			CopyLinkButtons:  []string{"复制链接", "复制商品链接"},
			MainImageIDs:     []string{"iv_goods_image", "goods_banner", "sku_image"},
			MainImageDescs:   []string{"商品图片", "商品主图", "图片"},
			ShopSuffixes:     []string{"旗舰店", "专营店", "专卖店", "店"},
			SpecSelectedHint: []string{"已选", "已选择"},
		},
		Keywords: Keywords{
			Forbidden: []string{
				"定制", "个人定制", "预售", "拍前咨询客服", "联系客服下单", "先联系客服",
				"custom-made", "pre-order",
			},
			Promotional: append([]string(nil), price.DefaultPromoKeywords...),
		},
		Scan: Scan{
			DedupDistancePx:   40,
			HistorySize:       100,
			ExcludeTopRatio:   0.2,
			MaxScrolls:        20,
			MaxEmptyScreens:   3,
			ImageMaxDxPx:      150,
			ImageMinSidePx:    120,
			AncestorLevels:    5,
			ClassifyScrollTry: 2,
		},
		Negotiation: Negotiation{
			MaxSteps:       30,
			NoImproveLimit: 8,
		},
		API: API{
			Timeout:    Duration(10 * time.Second),
			MaxRetries: 3,
			RetryDelay: Duration(2 * time.Second),
		},
		Storage: Storage{
			Dir: "cartpilot-data",
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
