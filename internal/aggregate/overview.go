package aggregate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/subgraph"
)

const factoryFields = `{ totalValueLockedUSD totalVolumeUSD totalFeesUSD txCount }`

const dayDatasQuery = `query kyberSwapDayDatas($startTime: Int!, $skip: Int!) {
  kyberSwapDayDatas(first: 1000, skip: $skip, where: { date_gt: $startTime }, orderBy: date, orderDirection: asc, subgraphError: allow) {
    date
    volumeUSD
    tvlUSD
    feesUSD
  }
}`

type factoryRow struct {
	TotalValueLockedUSD string `json:"totalValueLockedUSD"`
	TotalVolumeUSD      string `json:"totalVolumeUSD"`
	TotalFeesUSD        string `json:"totalFeesUSD"`
	TxCount             string `json:"txCount"`
}

func (r factoryRow) totals() model.GlobalTotals {
	return model.GlobalTotals{
		TVLUSD:    subgraph.ParseFloat(r.TotalValueLockedUSD),
		VolumeUSD: subgraph.ParseFloat(r.TotalVolumeUSD),
		FeesUSD:   subgraph.ParseFloat(r.TotalFeesUSD),
		TxCount:   subgraph.ParseFloat(r.TxCount),
	}
}

type dayDataRow struct {
	Date      int64  `json:"date"`
	VolumeUSD string `json:"volumeUSD"`
	TVLUSD    string `json:"tvlUSD"`
	FeesUSD   string `json:"feesUSD"`
}

func (r dayDataRow) datum() model.DayDatum {
	return model.DayDatum{
		Date:      r.Date,
		VolumeUSD: subgraph.ParseFloat(r.VolumeUSD),
		TVLUSD:    subgraph.ParseFloat(r.TVLUSD),
		FeesUSD:   subgraph.ParseFloat(r.FeesUSD),
	}
}

// GlobalOverview returns protocol totals per network and merged.
func (s *Service) GlobalOverview(ctx context.Context) (Results[model.GlobalData], error) {
	return FetchAcrossNetworks(ctx, s.pool, s.networks, func(ctx context.Context, network model.Network) (model.GlobalData, error) {
		b := s.backends[network.ID]
		return Memo(ctx, &s.memo, MemoKey("globalOverview", network.ID), func(ctx context.Context) (model.GlobalData, error) {
			return s.fetchGlobal(ctx, b)
		})
	}, MergeGlobal, s.logger)
}

func globalQuery(block24, block48 uint64) string {
	var q strings.Builder
	q.WriteString("query factories {\n  current: factories(first: 1, subgraphError: allow) " + factoryFields)
	if block24 > 0 {
		fmt.Fprintf(&q, "\n  oneDay: factories(first: 1, block: { number: %d }, subgraphError: allow) %s", block24, factoryFields)
	}
	if block48 > 0 {
		fmt.Fprintf(&q, "\n  twoDay: factories(first: 1, block: { number: %d }, subgraphError: allow) %s", block48, factoryFields)
	}
	q.WriteString("\n}")
	return q.String()
}

func (s *Service) fetchGlobal(ctx context.Context, b Backend) (model.GlobalData, error) {
	block24, block48, err := s.historicalBlocks(ctx, b)
	if err != nil {
		return model.GlobalData{}, err
	}

	var resp struct {
		Current []factoryRow `json:"current"`
		OneDay  []factoryRow `json:"oneDay"`
		TwoDay  []factoryRow `json:"twoDay"`
	}
	if err := b.Subgraph.Query(ctx, globalQuery(block24, block48), nil, &resp); err != nil {
		return model.GlobalData{}, fmt.Errorf("query factories: %w", err)
	}
	if len(resp.Current) == 0 {
		return model.GlobalData{}, fmt.Errorf("no factory on %s", b.Network.ID)
	}

	// Missing history reads as no change rather than the whole cumulative total.
	current := resp.Current[0].totals()
	one, two := current, current
	if len(resp.OneDay) > 0 {
		one = resp.OneDay[0].totals()
		two = one
	}
	if len(resp.TwoDay) > 0 {
		two = resp.TwoDay[0].totals()
	}
	s.logger.Debug("fetch global", zap.String("network", b.Network.ID), zap.Uint64("block_24h", block24), zap.Uint64("block_48h", block48))
	return DeriveGlobal(current, one, two), nil
}

// DayData returns the protocol's daily volume, TVL and fees after start,
// per network and added together by date.
func (s *Service) DayData(ctx context.Context, start int64) (Results[[]model.DayDatum], error) {
	return FetchAcrossNetworks(ctx, s.pool, s.networks, func(ctx context.Context, network model.Network) ([]model.DayDatum, error) {
		b := s.backends[network.ID]
		return Memo(ctx, &s.memo, MemoKey("dayData", network.ID, start), func(ctx context.Context) ([]model.DayDatum, error) {
			return fetchDayData(ctx, b.Subgraph, dayDatasQuery, "kyberSwapDayDatas", map[string]interface{}{"startTime": start})
		})
	}, MergeDayData, s.logger)
}

func fetchDayData(ctx context.Context, client subgraph.Querier, query, field string, vars map[string]interface{}) ([]model.DayDatum, error) {
	rows, err := subgraph.Paginate(ctx, subgraph.PageSize, func(ctx context.Context, skip int) ([]dayDataRow, error) {
		pageVars := map[string]interface{}{"skip": skip}
		for k, v := range vars {
			pageVars[k] = v
		}
		var resp map[string][]dayDataRow
		if err := client.Query(ctx, query, pageVars, &resp); err != nil {
			return nil, fmt.Errorf("query %s: %w", field, err)
		}
		return resp[field], nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.DayDatum, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.datum())
	}
	return out, nil
}
