package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"elasticAnalytics/internal/metric"
	"elasticAnalytics/internal/model"
)

// DeriveGlobal fills the 24h figures and changes from three snapshots of
// cumulative totals.
func DeriveGlobal(current, oneDayAgo, twoDaysAgo model.GlobalTotals) model.GlobalData {
	out := model.GlobalData{
		Current:    current,
		OneDayAgo:  oneDayAgo,
		TwoDaysAgo: twoDaysAgo,
	}
	out.TVLChange = metric.PercentChangeOf(current.TVLUSD, oneDayAgo.TVLUSD)
	out.VolumeUSD24h, out.VolumeChange = metric.TwoWindowChange(current.VolumeUSD, oneDayAgo.VolumeUSD, twoDaysAgo.VolumeUSD)
	out.FeesUSD24h, out.FeesChange = metric.TwoWindowChange(current.FeesUSD, oneDayAgo.FeesUSD, twoDaysAgo.FeesUSD)
	out.TxCount24h, out.TxCountChange = metric.TwoWindowChange(current.TxCount, oneDayAgo.TxCount, twoDaysAgo.TxCount)
	return out
}

func addTotals(a, b model.GlobalTotals) model.GlobalTotals {
	return model.GlobalTotals{
		TVLUSD:    a.TVLUSD + b.TVLUSD,
		VolumeUSD: a.VolumeUSD + b.VolumeUSD,
		FeesUSD:   a.FeesUSD + b.FeesUSD,
		TxCount:   a.TxCount + b.TxCount,
	}
}

// MergeGlobal sums the raw totals of every network and derives the changes
// from the sums.
func MergeGlobal(values []model.GlobalData) model.GlobalData {
	var cur, one, two model.GlobalTotals
	for _, v := range values {
		cur = addTotals(cur, v.Current)
		one = addTotals(one, v.OneDayAgo)
		two = addTotals(two, v.TwoDaysAgo)
	}
	return DeriveGlobal(cur, one, two)
}

// MergeDayData adds day series together by date, ascending.
func MergeDayData(values [][]model.DayDatum) []model.DayDatum {
	byDate := make(map[int64]model.DayDatum)
	for _, series := range values {
		for _, d := range series {
			acc := byDate[d.Date]
			acc.Date = d.Date
			acc.VolumeUSD += d.VolumeUSD
			acc.TVLUSD += d.TVLUSD
			acc.FeesUSD += d.FeesUSD
			byDate[d.Date] = acc
		}
	}
	out := make([]model.DayDatum, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// MergePools unions per-network pool maps. An address present on two
// networks is logged as an error and the first network keeps it.
func MergePools(logger *zap.Logger) MergeFunc[map[string]model.PoolData] {
	return func(values []map[string]model.PoolData) map[string]model.PoolData {
		return unionMaps(values, "pool", logger)
	}
}

// MergeTokens is MergePools for tokens.
func MergeTokens(logger *zap.Logger) MergeFunc[map[string]model.TokenData] {
	return func(values []map[string]model.TokenData) map[string]model.TokenData {
		return unionMaps(values, "token", logger)
	}
}

func unionMaps[V any](values []map[string]V, kind string, logger *zap.Logger) map[string]V {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make(map[string]V)
	for i, m := range values {
		for addr, v := range m {
			if _, exists := out[addr]; exists {
				logger.Error("address collision across networks",
					zap.String("kind", kind),
					zap.String("address", addr),
					zap.Int("network_index", i),
				)
				continue
			}
			out[addr] = v
		}
	}
	return out
}
