// Package format renders money, percentages, and counts for the console
// and text outputs.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Int formats an integer with comma separators.
func Int(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// Money formats a decimal as $X,XXX.XX, rounding half away from zero.
func Money(d decimal.Decimal) string {
	r := d.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Neg()
	}
	_, frac, _ := strings.Cut(r.StringFixed(2), ".")
	return sign + "$" + Int(r.IntPart()) + "." + frac
}

// Compact formats a money value with B/M/K suffixes.
func Compact(d decimal.Decimal) string {
	v := d.InexactFloat64()
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return Money(d)
	}
}

// Percent formats a 0-100 percentage as "X.X%". Values of 100 or more
// drop the decimal to keep width compact.
func Percent(p float64) string {
	if p >= 100 || p <= -100 {
		return fmt.Sprintf("%.0f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

// Count formats a count, using a K suffix for large values.
func Count(n int64) string {
	if n >= 100_000 {
		return fmt.Sprintf("%.0fK", float64(n)/1e3)
	}
	return Int(n)
}
