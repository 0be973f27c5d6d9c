package pricing

import (
	"math"
	"strconv"
	"strings"

	"rentcal/internal/domain/shared/datekey"
)

// ApplyDiscount takes percent off base. Percentages above 100 are treated as
// a multiplier (150 yields 1.5x base) and saturate at math.MaxInt64; anything
// below 0 counts as 0.
func ApplyDiscount(base int64, percent float64) int64 {
	if math.IsNaN(percent) {
		percent = 0
	}
	if percent > 100 {
		return saturate(math.Round(float64(base) * percent / 100))
	}
	limited := math.Min(math.Max(percent, 0), 100)
	return saturate(math.Round(float64(base) * (100 - limited) / 100))
}

// saturate converts a non-negative price to int64 without wrapping.
func saturate(v float64) int64 {
	switch {
	case v >= float64(math.MaxInt64):
		return math.MaxInt64
	case v <= 0:
		return 0
	}
	return int64(v)
}

// WeekendDiscount is the standing Saturday/Sunday rule.
type WeekendDiscount struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent"`
}

func (w WeekendDiscount) Active() bool {
	return w.Enabled && w.Percent > 0
}

// Applies reports whether the rule discounts d.
func (w WeekendDiscount) Applies(d datekey.DateKey) bool {
	return w.Active() && d.IsWeekend()
}

// PriceFor returns the price of d under the rule, or base when it does not
// apply.
func (w WeekendDiscount) PriceFor(d datekey.DateKey, base int64) int64 {
	if !w.Applies(d) {
		return base
	}
	return ApplyDiscount(base, w.Percent)
}

// ParsePercent reads user input such as "10%", " 12.5 " or "abc". Everything
// that is not a digit or a dot is dropped, then the longest number at the
// start is taken ("10.5.3" reads 10.5). Unparseable input becomes 0.
func ParsePercent(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, raw)
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		if j := strings.IndexByte(cleaned[i+1:], '.'); j >= 0 {
			cleaned = cleaned[:i+1+j]
		}
	}
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParsePrice reads a non-negative integer price. The boolean is false when
// the input should be ignored.
func ParsePrice(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
