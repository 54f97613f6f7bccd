package price

import (
	"regexp"
	"strings"
)

// DefaultPromoKeywords are marketing words that mark a price-like text as
// something other than the product's selling price.
var DefaultPromoKeywords = []string{
	"立减", "优惠", "券", "折", "秒杀", "满减", "补贴", "返", "红包",
	"discount", "coupon", "flash-sale",
}

var salesCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+(?:\.\d+)?\s*[万千]?\+?\s*人\s*(?:拼|付款|已拼|购买|已买|想要|收藏)`),
	regexp.MustCompile(`(?:已拼|已售|销量|月售)\s*\d`),
	regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*k?\+?\s*(?:sold|bought)`),
}

// PromoFilter recognizes promotional price text.
type PromoFilter struct {
	Keywords []string
}

// NewPromoFilter returns a filter over keywords, falling back to the defaults
// when keywords is empty.
func NewPromoFilter(keywords []string) PromoFilter {
	if len(keywords) == 0 {
		keywords = DefaultPromoKeywords
	}
	return PromoFilter{Keywords: keywords}
}

// IsPromotional reports whether text is promotional noise, regardless of
// whether it also contains a valid price.
func (f PromoFilter) IsPromotional(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range f.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return IsSalesCount(text)
}

// IsSalesCount matches "1.6万人拼"-style order counters.
func IsSalesCount(text string) bool {
	for _, re := range salesCountPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
