package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// currencyNoise matches currency symbols, ISO codes, quotes and whitespace.
	currencyNoise = regexp.MustCompile(`(?i)r\$|\p{Sc}|eur|usd|gbp|chf|sgd|brl|aud|cad|jpy|["'\s\x{00A0}]`)

	// europeanGrouped matches "1.234,56" and "12,5": dot thousands, comma decimals.
	europeanGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(?:\.\d{3})*,\d{1,2}$`)

	// commaDecimal matches "47,40" with no grouping at all.
	commaDecimal = regexp.MustCompile(`^[+-]?\d+,\d{1,2}$`)
)

// NormalizeAmount converts a raw statement amount into a signed decimal.
// European comma-decimal shapes are recognised first; anything else is read
// with US conventions. Unparsable input yields zero.
func NormalizeAmount(raw string) decimal.Decimal {
	s := currencyNoise.ReplaceAllString(raw, "")
	if s == "" {
		return decimal.Zero
	}

	switch {
	case europeanGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case !strings.Contains(s, ".") && commaDecimal.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	amount, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero
	}
	return amount
}
