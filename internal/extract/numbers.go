package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	fractionRe = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

var hundred = decimal.NewFromInt(100)

// spelled-out shares; anything else has no value
var wordShares = map[string]decimal.Decimal{
	"un terzo":       decimal.RequireFromString("33.33"),
	"uno terzo":      decimal.RequireFromString("33.33"),
	"due terzi":      decimal.RequireFromString("66.67"),
	"quattro quarti": decimal.RequireFromString("100.00"),
	"one third":      decimal.RequireFromString("33.33"),
	"a third":        decimal.RequireFromString("33.33"),
	"two thirds":     decimal.RequireFromString("66.67"),
	"four fourths":   decimal.RequireFromString("100.00"),
	"four quarters":  decimal.RequireFromString("100.00"),
}

// FractionToPercent converts the first "a/b" in s to 100·a/b rounded to two
// decimals. A zero denominator has no value.
func FractionToPercent(s string) (float64, bool) {
	d, ok := fractionPercent(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func fractionPercent(s string) (decimal.Decimal, bool) {
	m := fractionRe.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	a, errA := strconv.ParseInt(m[1], 10, 64)
	b, errB := strconv.ParseInt(m[2], 10, 64)
	if errA != nil || errB != nil || b == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(a).Mul(hundred).Div(decimal.NewFromInt(b)).Round(2), true
}

// WordsToPercent maps a spelled-out fraction such as "due terzi" to a percentage.
func WordsToPercent(s string) (float64, bool) {
	d, ok := wordsPercent(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func wordsPercent(s string) (decimal.Decimal, bool) {
	key := spacesRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
	d, ok := wordShares[key]
	return d, ok
}

// ParsePercent reads a share written with a decimal comma or point ("33,5", "50").
func ParsePercent(s string) (float64, bool) {
	d, ok := percentDecimal(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func percentDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// ParseLocaleNumber parses Italian formatted numbers: "." groups thousands,
// "," separates decimals. "12.345,67" is 12345.67.
func ParseLocaleNumber(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// FormatPercent renders a share with two fixed decimals ("50.00").
func FormatPercent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// sharePercent converts any captured share token to its fixed two-decimal
// form, or "" when it cannot be read.
func sharePercent(raw string) string {
	raw = strings.TrimSpace(raw)
	var (
		d  decimal.Decimal
		ok bool
	)
	switch {
	case fractionRe.MatchString(raw):
		d, ok = fractionPercent(raw)
	case strings.ContainsAny(raw, "0123456789"):
		d, ok = percentDecimal(raw)
	default:
		d, ok = wordsPercent(raw)
	}
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}
