package page

import (
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/price"
)

// View is one snapshot of the screen with region helpers. Regions are
// fractions of the screen height measured from the top.
type View struct {
	Elems         []core.Element
	Width, Height int
}

// NewView wraps a snapshot.
func NewView(elems []core.Element, width, height int) *View {
	return &View{Elems: elems, Width: width, Height: height}
}

// Band is a vertical slice of the screen, [Top, Bottom) as height ratios.
type Band struct{ Top, Bottom float64 }

// Common bands.
var (
	Anywhere  = Band{0, 1}
	TopBar    = Band{0, 0.2}
	Upper70   = Band{0, 0.7}
	BottomNav = Band{0.85, 1}
	BottomBar = Band{0.8, 1}
)

func (v *View) inBand(e core.Element, b Band) bool {
	_, cy := e.Bounds().Center()
	top := int(b.Top * float64(v.Height))
	bottom := int(b.Bottom * float64(v.Height))
	return cy >= top && cy < bottom
}

// WithLabel returns elements in band whose text or description equals any
// label (exact) or, when contains is set, includes it.
func (v *View) WithLabel(labels []string, b Band, contains bool) []core.Element {
	var out []core.Element
	for _, e := range v.Elems {
		if e.Bounds().Empty() || !v.inBand(e, b) {
			continue
		}
		if labelMatches(e.Text(), labels, contains) || labelMatches(e.Desc(), labels, contains) {
			out = append(out, e)
		}
	}
	return out
}

// HasLabel reports whether any label is present in band.
func (v *View) HasLabel(labels []string, b Band, contains bool) bool {
	return len(v.WithLabel(labels, b, contains)) > 0
}

// CountLabels returns how many distinct labels are present in band.
func (v *View) CountLabels(labels []string, b Band, contains bool) int {
	n := 0
	for _, l := range labels {
		if v.HasLabel([]string{l}, b, contains) {
			n++
		}
	}
	return n
}

// PriceCount returns the number of price-like texts in band.
func (v *View) PriceCount(b Band) int {
	n := 0
	for _, e := range v.Elems {
		if v.inBand(e, b) && price.LooksLikePrice(e.Text()) {
			n++
		}
	}
	return n
}

func labelMatches(s string, labels []string, contains bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, l := range labels {
		if l == "" {
			continue
		}
		if s == l || (contains && strings.Contains(s, l)) {
			return true
		}
	}
	return false
}
