// Package valuation builds day-bucketed USD value series for liquidity
// positions from their snapshots.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"elasticAnalytics/internal/model"
)

// DaySeconds is the length of one series bucket.
const DaySeconds = 86400

// PriceLookup returns the ETH-USD price for the bucket starting at day.
type PriceLookup func(day int64) (decimal.Decimal, bool)

// DayBucket returns the index of the UTC day containing ts.
func DayBucket(ts int64) int64 {
	q := ts / DaySeconds
	if ts%DaySeconds != 0 && ts < 0 {
		q--
	}
	return q
}

// Buckets lists the start timestamps of every day from the later of
// windowStart and earliest up to and including the day containing now.
func Buckets(windowStart, earliest, now int64) []int64 {
	from := windowStart
	if earliest > from {
		from = earliest
	}
	first, last := DayBucket(from), DayBucket(now)
	if last < first {
		return nil
	}
	out := make([]int64, 0, last-first+1)
	for b := first; b <= last; b++ {
		out = append(out, b*DaySeconds)
	}
	return out
}

// BuildValueSeries sums the USD value of every tracked position per day.
// Each day carries forward the newest snapshot seen so far for each position;
// snapshots older than the first day seed that state. A day without an ETH
// price is emitted with zero value.
func BuildValueSeries(snapshots []model.PositionSnapshot, windowStart, now int64, prices PriceLookup) []model.SeriesPoint {
	if len(snapshots) == 0 {
		return nil
	}

	earliest := snapshots[0].Timestamp
	for _, s := range snapshots[1:] {
		if s.Timestamp < earliest {
			earliest = s.Timestamp
		}
	}
	days := Buckets(windowStart, earliest, now)
	if len(days) == 0 {
		return nil
	}

	sorted := make([]model.PositionSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	latest := make(map[string]model.PositionSnapshot)
	next := 0
	merge := func(until int64) {
		for next < len(sorted) && DayBucket(sorted[next].Timestamp) <= until {
			s := sorted[next]
			if cur, ok := latest[s.PositionID]; !ok || s.Timestamp > cur.Timestamp {
				latest[s.PositionID] = s
			}
			next++
		}
	}

	out := make([]model.SeriesPoint, 0, len(days))
	for _, day := range days {
		merge(DayBucket(day))

		point := model.SeriesPoint{Date: day, Value: decimal.Zero, Fees: decimal.Zero}
		ethPrice, ok := decimal.Zero, false
		if prices != nil {
			ethPrice, ok = prices(day)
		}
		if ok {
			valueETH, feesETH := decimal.Zero, decimal.Zero
			for _, s := range latest {
				v, f := positionETH(s)
				valueETH = valueETH.Add(v)
				feesETH = feesETH.Add(f)
			}
			point.Value = valueETH.Mul(ethPrice)
			point.Fees = feesETH.Mul(ethPrice)
		}
		out = append(out, point)
	}
	return out
}

// BuildPositionSeries is BuildValueSeries restricted to one position.
func BuildPositionSeries(snapshots []model.PositionSnapshot, positionID string, windowStart, now int64, prices PriceLookup) []model.SeriesPoint {
	own := make([]model.PositionSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.PositionID == positionID {
			own = append(own, s)
		}
	}
	return BuildValueSeries(own, windowStart, now, prices)
}

// MapPrices adapts a day -> price map to a PriceLookup.
func MapPrices(prices map[int64]decimal.Decimal) PriceLookup {
	return func(day int64) (decimal.Decimal, bool) {
		p, ok := prices[day]
		return p, ok
	}
}
