// Package bytesize converts between byte counts and human-friendly size
// strings.
package bytesize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 1024-based multipliers, keyed by suffix.
var unitMultipliers = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// suffixes ordered longest-first so "B" does not shadow "KB".
var suffixes = []string{"TB", "GB", "MB", "KB", "B"}

// Parse converts strings like "512MB", "1.5GB" or "100KB" into a byte
// count. Units are case-insensitive and 1024-based.
func Parse(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var unit, valueStr string
	for _, u := range suffixes {
		if strings.HasSuffix(s, u) {
			unit = u
			valueStr = strings.TrimSpace(strings.TrimSuffix(s, u))
			break
		}
	}
	if unit == "" {
		return 0, fmt.Errorf("invalid size %q: missing unit (supported: B, KB, MB, GB, TB)", s)
	}
	if valueStr == "" {
		return 0, fmt.Errorf("invalid size %q: missing numeric value", s)
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q in %q: %w", valueStr, s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid size %q: negative value not allowed", s)
	}

	result := value * float64(unitMultipliers[unit])
	if result > math.MaxInt64 {
		return 0, fmt.Errorf("size %q exceeds the maximum representable value", s)
	}
	return int64(result), nil
}

// Format renders a byte count with the largest unit that keeps the value
// at or above one, with a single decimal for fractional values.
func Format(n int64) string {
	for _, u := range suffixes[:len(suffixes)-1] {
		m := unitMultipliers[u]
		if n >= m {
			v := float64(n) / float64(m)
			if v == math.Trunc(v) {
				return fmt.Sprintf("%d%s", int64(v), u)
			}
			return fmt.Sprintf("%.1f%s", v, u)
		}
	}
	return fmt.Sprintf("%dB", n)
}
