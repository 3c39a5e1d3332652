package compute

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number coerces loosely-typed input, such as values decoded into
// map[string]any from a form, to a float64. Anything non-numeric, NaN, or
// infinite becomes 0.
func Number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	case decimal.Decimal:
		f, _ = n.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Decimal coerces loosely-typed input to a decimal. Strings and json.Number
// are parsed exactly; floats go through their shortest representation.
func Decimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	f := Number(v)
	if f == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// Int coerces loosely-typed input to an int64, truncating any fraction.
func Int(v any) int64 {
	return Decimal(v).IntPart()
}
