package displayer

import (
	"math"
	"strconv"
	"strings"

	"smartobd/internal/obd"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the last width values scaled between their minimum and
// maximum. A flat series sits on the lowest level.
func Sparkline(values []float64, width int) string {
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var sb strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range values {
		level := 0
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(top))
		}
		sb.WriteRune(sparkRunes[level])
	}
	return sb.String()
}

func appendBounded(s []float64, v float64, limit int) []float64 {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}

// formatValue renders numbers with at most two decimals.
func formatValue(v obd.Value) string {
	if f, ok := v.Float(); ok {
		return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
	}
	return v.String()
}
