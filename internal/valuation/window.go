package valuation

import (
	"fmt"
	"strings"
	"time"
)

var windows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// WindowStart converts a window name to its start timestamp relative to now.
// "all" (or empty) starts at zero.
func WindowStart(window string, now time.Time) (int64, error) {
	window = strings.ToLower(strings.TrimSpace(window))
	if window == "" || window == "all" {
		return 0, nil
	}
	d, ok := windows[window]
	if !ok {
		return 0, fmt.Errorf("unknown window %q", window)
	}
	return now.Add(-d).Unix(), nil
}
