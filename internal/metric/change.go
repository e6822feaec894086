// Package metric derives change and yield figures from windowed totals.
package metric

import "math"

// TwoWindowChange compares the last window (now - oneAgo) against the one
// before it (oneAgo - twoAgo). It returns the last window's delta and its
// percent change; pct is 0 when it is not finite.
func TwoWindowChange(now, oneAgo, twoAgo float64) (delta, pct float64) {
	current := now - oneAgo
	previous := oneAgo - twoAgo
	pct = (current - previous) / previous * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return current, 0
	}
	return current, pct
}

// PercentChange returns the percent change from then to now, or 0 when either
// side is missing or the result is not finite.
func PercentChange(now, then *float64) float64 {
	if now == nil || then == nil {
		return 0
	}
	change := (*now - *then) / *then * 100
	if math.IsNaN(change) || math.IsInf(change, 0) {
		return 0
	}
	return change
}

// PercentChangeOf is PercentChange for values that are always present.
func PercentChangeOf(now, then float64) float64 {
	return PercentChange(&now, &then)
}
