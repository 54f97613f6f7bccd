// Package courier identifies the carrier of a tracking number. The rules
// mirror the carriers' published numbering schemes, overlaps included, and
// are evaluated in order.
package courier

import (
	"regexp"
	"strings"
)

// Courier is a carrier name as shown to the operator.
type Courier string

const (
	JiTu    Courier = "极兔速递"
	SF      Courier = "顺丰速运"
	YTO     Courier = "圆通速递"
	JD      Courier = "京东物流"
	EMS     Courier = "中国邮政"
	STO     Courier = "申通快递"
	ZTO     Courier = "中通快递"
	Yunda   Courier = "韵达快递"
	Best    Courier = "百世快递"
	Unknown Courier = "未知快递"
)

// Rule maps a number shape to a courier. A number starting with any of
// ExcludeLeading digits is not claimed by the rule.
type Rule struct {
	Courier        Courier
	Pattern        *regexp.Regexp
	ExcludeLeading string
}

// Rules is the ordered rule table.
var Rules = []Rule{
	{Courier: JiTu, Pattern: regexp.MustCompile(`^JT\d{10,}$`)},
	{Courier: SF, Pattern: regexp.MustCompile(`^SF\d{10,}$`)},
	{Courier: YTO, Pattern: regexp.MustCompile(`^YT\d{10,}$`)},
	{Courier: JD, Pattern: regexp.MustCompile(`^JD[A-Z0-9]{10,}$`)},
	{Courier: EMS, Pattern: regexp.MustCompile(`^(?:[A-Z]{2}\d{9}[A-Z]{2}|1[01]\d{11})$`)},
	{Courier: STO, Pattern: regexp.MustCompile(`^(?:77|66|88)\d{10,13}$`)},
	{Courier: ZTO, Pattern: regexp.MustCompile(`^7[0-9]\d{10,13}$`)},
	{Courier: Yunda, Pattern: regexp.MustCompile(`^(?:43|46|31|30)\d{11}$`)},
	{Courier: Best, Pattern: regexp.MustCompile(`^(?:55|56|57)\d{11}$`)},
	// Bare long numbers default to ZTO unless they fall in another
	// carrier's leading-digit space.
	{Courier: ZTO, Pattern: regexp.MustCompile(`^\d{12,15}$`), ExcludeLeading: "467"},
}

// Normalize strips separators and upper-cases letters.
func Normalize(number string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(number) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Identify returns the first courier whose rule claims number.
func Identify(number string) Courier {
	n := Normalize(number)
	if n == "" {
		return Unknown
	}
	for _, r := range Rules {
		if !r.Pattern.MatchString(n) {
			continue
		}
		if r.ExcludeLeading != "" && strings.ContainsRune(r.ExcludeLeading, rune(n[0])) {
			continue
		}
		return r.Courier
	}
	return Unknown
}

var numberPattern = regexp.MustCompile(`(?:[A-Za-z]{2,4}\s*)?\d[\dA-Za-z\- ]{8,}\d`)

// ExtractNumber pulls the tracking number out of copied text such as
// "运单号：JT 1234 5678 9012".
func ExtractNumber(text string) (string, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return "", false
	}
	n := Normalize(m)
	if len(n) < 10 {
		return "", false
	}
	return n, true
}
