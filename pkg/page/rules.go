package page

import "github.com/devicelab-dev/cartpilot/pkg/config"

// Anchor is one piece of evidence that a page is displayed.
type Anchor struct {
	Name string
	Test func(v *View) bool
}

// Rule recognises one Kind. Every Required anchor must hold, no Exclude
// anchor may hold, and at least MinMatches of Anchors must hold.
type Rule struct {
	Kind       Kind
	Required   []Anchor
	Anchors    []Anchor
	Exclude    []Anchor
	MinMatches int
}

// Evaluate returns whether v satisfies r and the names of matched anchors.
func (r Rule) Evaluate(v *View) (bool, []string) {
	var matched []string
	for _, a := range r.Required {
		if !a.Test(v) {
			return false, nil
		}
		matched = append(matched, a.Name)
	}
	for _, a := range r.Exclude {
		if a.Test(v) {
			return false, nil
		}
	}
	hits := 0
	for _, a := range r.Anchors {
		if a.Test(v) {
			hits++
			matched = append(matched, a.Name)
		}
	}
	return hits >= r.MinMatches, matched
}

func label(name string, labels []string, b Band, contains bool) Anchor {
	return Anchor{Name: name, Test: func(v *View) bool { return v.HasLabel(labels, b, contains) }}
}

func atLeast(name string, n int, labels []string, b Band, contains bool) Anchor {
	return Anchor{Name: name, Test: func(v *View) bool { return v.CountLabels(labels, b, contains) >= n }}
}

func prices(name string, n int, b Band) Anchor {
	return Anchor{Name: name, Test: func(v *View) bool { return v.PriceCount(b) >= n }}
}

// orderTabs is the status tab strip at the top of the order list.
var orderTabBand = Band{0, 0.3}

// Rules builds the rule set for labels in evaluation order. More specific
// pages come first: a spec popup is drawn over a detail page and the
// personal center shows the same status labels as the order list.
func Rules(l config.Labels) []Rule {
	homeTab := label("home-tab", l.HomeTab, BottomNav, false)
	searchTop := label("search-box-top", l.SearchBox, TopBar, true)
	buyBar := label("buy-button", l.BuyButtons, BottomBar, true)
	personalNav := label("personal-tab", l.PersonalTab, BottomNav, false)
	orderTabs := atLeast("order-tabs", 3, append(append([]string{}, l.PendingPayment...), l.PendingDelivery...), orderTabBand, false)

	return []Rule{
		{
			Kind:       SpecificationPopup,
			Required:   []Anchor{atLeast("spec-anchors", 2, l.SpecAnchors, Anywhere, true)},
			Anchors:    []Anchor{prices("price", 1, Anywhere), label("confirm-bottom", append(append([]string{}, l.ConfirmButtons...), l.BuyButtons...), BottomBar, true), label("selected-hint", l.SpecSelectedHint, Anywhere, true)},
			MinMatches: 2,
		},
		{
			Kind:       ProductDetail,
			Anchors:    []Anchor{buyBar, atLeast("detail-anchors", 2, l.DetailAnchors, Anywhere, false), prices("price", 1, Anywhere)},
			Exclude:    []Anchor{homeTab},
			MinMatches: 2,
		},
		{
			Kind:       PendingPayment,
			Required:   []Anchor{orderTabs},
			Anchors:    []Anchor{label("pay-button", l.PayButtons, Anywhere, true)},
			Exclude:    []Anchor{label("logistics", l.Logistics, Anywhere, true), personalNav},
			MinMatches: 1,
		},
		{
			Kind:       PendingDelivery,
			Required:   []Anchor{orderTabs},
			Anchors:    []Anchor{label("logistics", l.Logistics, Anywhere, true), label("confirm-receipt", []string{"确认收货"}, Anywhere, true)},
			Exclude:    []Anchor{personalNav},
			MinMatches: 1,
		},
		{
			Kind:       FavoriteList,
			Required:   []Anchor{label("favorites-title", l.Favorites, TopBar, false)},
			Anchors:    []Anchor{prices("price", 1, Anywhere), label("settle", l.SettleButtons, BottomBar, true)},
			Exclude:    []Anchor{homeTab},
			MinMatches: 1,
		},
		{
			Kind:       PersonalCenter,
			Required:   []Anchor{atLeast("personal-anchors", 3, l.PersonalAnchors, Anywhere, false)},
			Anchors:    []Anchor{personalNav, label("my-orders", []string{"我的订单"}, Anywhere, false)},
			MinMatches: 1,
		},
		{
			Kind:       ProductList,
			Anchors:    []Anchor{searchTop, atLeast("list-anchors", 2, l.ListAnchors, Upper70, false), prices("prices", 2, Anywhere)},
			Exclude:    []Anchor{homeTab, buyBar},
			MinMatches: 2,
		},
		{
			Kind:       Home,
			Required:   []Anchor{homeTab},
			Anchors:    []Anchor{homeTab, searchTop, label("recommend", l.Recommend, Upper70, false)},
			MinMatches: 2,
		},
	}
}
