package price

import (
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"¥9.9", 9.9, true},
		{"￥ 12.50", 12.5, true},
		{"0.8", 0.8, true},
		{"1.2.3", 1.23, true},
		{"38元", 38, true},
		{"abc", 0, false},
		{"", 0, false},
		{"...", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"100000", 0, false},
		{"99999.99", 99999.99, true},
		{".5", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMultipleDotsMatchesCollapsed(t *testing.T) {
	a, okA := Parse("1.2.3")
	b, okB := Parse("1.23")
	if !okA || !okB || a != b {
		t.Errorf("Parse(1.2.3) = %v,%v; Parse(1.23) = %v,%v", a, okA, b, okB)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	inputs := []string{"¥0.3", "5.0", "12.34", "1999", "0.01", "￥88.8", "7.5元", "3.14.15"}
	for _, in := range inputs {
		first, ok := Parse(in)
		if !ok {
			t.Fatalf("Parse(%q) failed", in)
		}
		second, ok := Parse(Format(first))
		if !ok || second != first {
			t.Errorf("round trip of %q: %v -> %q -> %v", in, first, Format(first), second)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"A ¥0.3", 0.3, true},
		{"到手价 ¥12.8 起", 12.8, true},
		{"券后 9.90", 9.9, true},
		{"仅需 25元", 25, true},
		{"已拼100件", 0, false},
		{"推荐", 0, false},
	}
	for _, tt := range tests {
		got, ok := Extract(tt.in)
		if ok != tt.wantOK || (ok && math.Abs(got-tt.want) > 1e-9) {
			t.Errorf("Extract(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPromoFilter(t *testing.T) {
	f := NewPromoFilter(nil)
	promotional := []string{
		"¥0.8 立减5元",
		"B ¥5.0 立减2元",
		"领券减3元",
		"1.6万人拼",
		"10万+人付款",
		"已拼 5320 件",
		"2.5k+ sold",
		"Flash-Sale ¥1.00",
	}
	for _, s := range promotional {
		if !f.IsPromotional(s) {
			t.Errorf("IsPromotional(%q) = false, want true", s)
		}
	}

	clean := []string{"¥0.9", "C ¥0.9", "9.9", "38元"}
	for _, s := range clean {
		if f.IsPromotional(s) {
			t.Errorf("IsPromotional(%q) = true, want false", s)
		}
	}
}

func TestPromoFilterCustomKeywords(t *testing.T) {
	f := NewPromoFilter([]string{"special"})
	if !f.IsPromotional("SPECIAL ¥1") {
		t.Error("custom keyword should match case-insensitively")
	}
	if f.IsPromotional("¥1 立减") {
		t.Error("defaults should not apply when custom keywords are given")
	}
}
