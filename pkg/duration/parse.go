// Package duration parses durations with day and week units on top of
// the standard Go syntax, for config timeouts and log time windows.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var unitMultipliers = map[string]time.Duration{
	"d": Day,
	"w": Week,
}

// durationPattern matches components like "2w" or "3d".
var durationPattern = regexp.MustCompile(`(\d+)([wd])`)

// Parse extends time.ParseDuration with d (days) and w (weeks). Compound
// forms like "2w3d" or "1d12h" work; "0" is zero.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if s == "0" {
		return 0, nil
	}

	if !strings.ContainsAny(s, "dw") {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w (supported units: ns, us, ms, s, m, h, d, w)", s, err)
		}
		return d, nil
	}

	var total time.Duration
	remaining := s
	for _, match := range durationPattern.FindAllStringSubmatch(remaining, -1) {
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q in %q", match[1], s)
		}
		total += time.Duration(value) * unitMultipliers[match[2]]
	}
	remaining = strings.TrimSpace(durationPattern.ReplaceAllString(remaining, ""))

	if remaining != "" {
		d, err := time.ParseDuration(remaining)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w (supported units: ns, us, ms, s, m, h, d, w)", s, err)
		}
		total += d
	}
	return total, nil
}
