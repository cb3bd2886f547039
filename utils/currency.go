package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCurrency parses an amount such as "$1,234.50", "1.234,50 MXN" or
// "1500" and rounds it half-up to cents. Unparsable input yields zero.
func ParseCurrency(s string) decimal.Decimal {
	d, err := decimal.NewFromString(cleanAmount(s))
	if err != nil {
		return decimal.Zero.Round(2)
	}
	return d.Round(2)
}

// ParseAmount is ParseCurrency as a float, used where amounts are compared.
func ParseAmount(s string) float64 {
	f, _ := ParseCurrency(s).Float64()
	return f
}

// cleanAmount strips currency markers and thousands separators. When both
// '.' and ',' appear, the last one is the decimal separator; a lone ','
// followed by exactly three digits is a thousands separator.
func cleanAmount(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "MXN", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.Join(strings.Fields(s), "")

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case comma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-comma-1 != 3 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// ParseNumber keeps digits and the decimal point and truncates to an int.
func ParseNumber(s string) (int, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0, false
	}
	return int(d.IntPart()), true
}

// FormatCurrency renders an amount with exactly two decimals.
func FormatCurrency(d decimal.Decimal) string {
	return d.StringFixed(2)
}
