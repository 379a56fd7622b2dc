// Package money formats and parses Brazilian real amounts.
package money

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Symbol is the currency prefix of every formatted amount.
const Symbol = "R$"

const (
	thousandsSep = "."
	decimalSep   = ","
)

// ErrInvalidPrice is returned when a price string is not a non-negative number.
var ErrInvalidPrice = errors.New("invalid price")

// Format renders v as "R$ 1.234,56": two fractional digits, "." grouping
// every three integer digits and "," as the decimal separator.
func Format(v decimal.Decimal) string {
	fixed := v.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	// "-0.00" is still zero.
	if fixed == "0.00" {
		sign = ""
	}

	intPart, frac, _ := strings.Cut(fixed, ".")
	return Symbol + " " + sign + group(intPart) + decimalSep + frac
}

// FormatValue formats arbitrary input. Anything that is not a finite number
// renders as the zero amount.
func FormatValue(v any) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return Format(x)
	case *decimal.Decimal:
		if x == nil {
			return Format(decimal.Zero)
		}
		return Format(*x)
	case int:
		return Format(decimal.NewFromInt(int64(x)))
	case int32:
		return Format(decimal.NewFromInt32(x))
	case int64:
		return Format(decimal.NewFromInt(x))
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return Format(decimal.Zero)
		}
		return Format(d)
	default:
		return Format(decimal.Zero)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Format(decimal.Zero)
	}
	return Format(decimal.NewFromFloat(f))
}

// ParsePrice parses a user or CSV supplied price. Both "10.50" and "10,50" are
// accepted, as is a leading currency symbol. Thousands separators are not.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, Symbol))
	if s == "" {
		return decimal.Zero, ErrInvalidPrice
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "parse %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "negative %q", s)
	}
	return d, nil
}

// group inserts the thousands separator into a string of digits.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
