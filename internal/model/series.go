package model

import "github.com/shopspring/decimal"

// SeriesPoint is one day bucket of a valuation series. Date is the bucket start
// in UNIX seconds.
type SeriesPoint struct {
	Date  int64           `json:"date"`
	Value decimal.Decimal `json:"value_usd"`
	Fees  decimal.Decimal `json:"fees_usd"`
}

// DayDatum is one day of protocol or pool chart data.
type DayDatum struct {
	Date      int64   `json:"date"`
	VolumeUSD float64 `json:"volume_usd"`
	TVLUSD    float64 `json:"tvl_usd"`
	FeesUSD   float64 `json:"fees_usd"`
}
