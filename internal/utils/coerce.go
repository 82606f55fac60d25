package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var amountSuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"crore", 10_000_000},
	{"cr", 10_000_000},
	{"lakhs", 100_000},
	{"lakh", 100_000},
	{"lacs", 100_000},
	{"lac", 100_000},
	{"k", 1_000},
}

// CoerceFloat converts loosely typed input into a float64. Strings may carry
// currency markers, digit grouping commas and lakh/crore/k suffixes. It
// returns NaN when the input cannot be read as a number.
func CoerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		return parseAmount(val)
	default:
		return math.NaN()
	}
}

// CoerceInt converts loosely typed input into an int. Fractional values are
// rejected rather than truncated.
func CoerceInt(v any) (int, bool) {
	f := CoerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// CoerceString renders loosely typed input as a trimmed string.
func CoerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func parseAmount(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, marker := range []string{"₹", "rs.", "rs", "inr", "$", "usd"} {
		s = strings.TrimPrefix(s, marker)
		s = strings.TrimSuffix(s, marker)
		s = strings.TrimSpace(s)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")

	multiplier := 1.0
	for _, sfx := range amountSuffixes {
		if strings.HasSuffix(s, sfx.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, sfx.suffix))
			multiplier = sfx.multiplier
			break
		}
	}

	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f * multiplier
}
