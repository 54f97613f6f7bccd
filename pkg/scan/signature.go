package scan

import (
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/price"
)

const signatureSep = "||"

// Signature joins store, title and spec into a dedup key. Items without a
// title cannot be signed.
func Signature(store, title, spec string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	return strings.TrimSpace(store) + signatureSep + title + signatureSep + strings.TrimSpace(spec), true
}

// SignatureSet remembers signed items across scroll passes.
type SignatureSet map[string]struct{}

// Add records sig and reports whether it was new.
func (s SignatureSet) Add(sig string) bool {
	if _, ok := s[sig]; ok {
		return false
	}
	s[sig] = struct{}{}
	return true
}

// Has reports whether sig was recorded.
func (s SignatureSet) Has(sig string) bool {
	_, ok := s[sig]
	return ok
}

// CardFields are the texts extracted from one product card.
type CardFields struct {
	Store string
	Title string
	Spec  string
	Price float64
}

// ExtractCard reads store, title, spec and price from the texts under card.
// The store is a text ending with a shop suffix, the spec a text carrying a
// spec hint, and the title the longest remaining text that is not a price.
func ExtractCard(card core.Element, shopSuffixes, specHints []string) CardFields {
	var f CardFields
	for _, e := range descendants(card) {
		t := strings.TrimSpace(e.Text())
		if t == "" {
			continue
		}
		switch {
		case f.Store == "" && hasAnySuffix(t, shopSuffixes) && len([]rune(t)) <= 20:
			f.Store = t
		case f.Spec == "" && containsAny(t, specHints):
			f.Spec = t
		case price.LooksLikePrice(t) && len([]rune(t)) <= 12:
			if p, ok := price.Extract(t); ok && f.Price == 0 {
				f.Price = p
			}
		case len([]rune(t)) > len([]rune(f.Title)):
			f.Title = t
		}
	}
	return f
}

// Sign returns the card's signature.
func (f CardFields) Sign() (string, bool) {
	return Signature(f.Store, f.Title, f.Spec)
}

// TitleKey is the first n runes of a title, used as a fuzzy identity for
// cards whose full text may be truncated differently between passes.
func TitleKey(title string, n int) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func descendants(e core.Element) []core.Element {
	out := []core.Element{e}
	for _, c := range e.Children() {
		out = append(out, descendants(c)...)
	}
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
