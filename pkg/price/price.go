// Package price extracts prices from on-screen text and filters the
// promotional noise that shopping apps render next to real prices.
package price

import (
	"regexp"
	"strconv"
	"strings"
)

// Bounds of a sane product price (exclusive).
const (
	MinPrice = 0
	MaxPrice = 100000
)

// patterns are tried in order; the first that matches wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`[¥￥]\s*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(\d+\.\d+)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*元`),
}

// Parse strips every character that is not a digit or a dot, keeps the first
// dot as the decimal separator and drops the rest, then parses. It fails for
// strings without digits and for values outside (MinPrice, MaxPrice).
func Parse(s string) (float64, bool) {
	var b strings.Builder
	seenDot := false
	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			hasDigit = true
		case r == '.':
			if !seenDot {
				b.WriteRune(r)
				seenDot = true
			}
		}
	}
	if !hasDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	if v <= MinPrice || v >= MaxPrice {
		return 0, false
	}
	return v, true
}

// Format renders p so that Parse(Format(p)) == p.
func Format(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Extract finds the first price-looking substring of text and parses it.
func Extract(text string) (float64, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return Parse(m[1])
	}
	return 0, false
}

// LooksLikePrice reports whether text contains something Extract accepts.
func LooksLikePrice(text string) bool {
	_, ok := Extract(text)
	return ok
}
