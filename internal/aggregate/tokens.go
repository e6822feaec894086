package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"elasticAnalytics/internal/metric"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/subgraph"
)

const tokenHistoryFields = `{ id totalValueLockedUSD volumeUSD derivedETH }`

type bundleRow struct {
	EthPriceUSD string `json:"ethPriceUSD"`
}

type tokenDataRow struct {
	ID                  string `json:"id"`
	Symbol              string `json:"symbol"`
	Name                string `json:"name"`
	Decimals            string `json:"decimals"`
	TotalValueLockedUSD string `json:"totalValueLockedUSD"`
	VolumeUSD           string `json:"volumeUSD"`
	DerivedETH          string `json:"derivedETH"`
}

// TopTokens returns the largest tokens by TVL per network, unioned by address.
func (s *Service) TopTokens(ctx context.Context) (Results[map[string]model.TokenData], error) {
	return FetchAcrossNetworks(ctx, s.pool, s.networks, func(ctx context.Context, network model.Network) (map[string]model.TokenData, error) {
		b := s.backends[network.ID]
		return Memo(ctx, &s.memo, MemoKey("topTokens", network.ID), func(ctx context.Context) (map[string]model.TokenData, error) {
			tokens, err := s.fetchTokens(ctx, b)
			if err != nil {
				return nil, err
			}
			for addr, t := range tokens {
				s.tokens.SetData(network.ID, addr, t)
			}
			return tokens, nil
		})
	}, MergeTokens(s.logger), s.logger)
}

func tokenHistoryQuery(ids []string, block24, block48 uint64) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, strconv.Quote(id))
	}
	where := "[" + strings.Join(quoted, ", ") + "]"

	var q strings.Builder
	q.WriteString("query tokensHistory {")
	if block24 > 0 {
		fmt.Fprintf(&q, "\n  oneDayBundle: bundle(id: \"1\", block: { number: %d }) { ethPriceUSD }", block24)
		fmt.Fprintf(&q, "\n  oneDay: tokens(first: %d, where: { id_in: %s }, block: { number: %d }, subgraphError: allow) %s", len(ids), where, block24, tokenHistoryFields)
	}
	if block48 > 0 {
		fmt.Fprintf(&q, "\n  twoDay: tokens(first: %d, where: { id_in: %s }, block: { number: %d }, subgraphError: allow) %s", len(ids), where, block48, tokenHistoryFields)
	}
	q.WriteString("\n}")
	return q.String()
}

func (s *Service) fetchTokens(ctx context.Context, b Backend) (map[string]model.TokenData, error) {
	var current struct {
		Bundle *bundleRow     `json:"bundle"`
		Tokens []tokenDataRow `json:"tokens"`
	}
	query := fmt.Sprintf(`query topTokens {
  bundle(id: "1") { ethPriceUSD }
  tokens(first: %d, orderBy: totalValueLockedUSD, orderDirection: desc, subgraphError: allow) { id symbol name decimals totalValueLockedUSD volumeUSD derivedETH }
}`, s.topN)
	if err := b.Subgraph.Query(ctx, query, nil, &current); err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	if len(current.Tokens) == 0 {
		return map[string]model.TokenData{}, nil
	}
	var ethPrice float64
	if current.Bundle != nil {
		ethPrice = subgraph.ParseFloat(current.Bundle.EthPriceUSD)
	}

	block24, block48, err := s.historicalBlocks(ctx, b)
	if err != nil {
		return nil, err
	}
	var hist struct {
		OneDayBundle *bundleRow     `json:"oneDayBundle"`
		OneDay       []tokenDataRow `json:"oneDay"`
		TwoDay       []tokenDataRow `json:"twoDay"`
	}
	if block24 > 0 || block48 > 0 {
		ids := make([]string, 0, len(current.Tokens))
		for _, t := range current.Tokens {
			ids = append(ids, strings.ToLower(t.ID))
		}
		if err := b.Subgraph.Query(ctx, tokenHistoryQuery(ids, block24, block48), nil, &hist); err != nil {
			return nil, fmt.Errorf("query token history: %w", err)
		}
	}
	oneDayAgo, twoDaysAgo := indexTokens(hist.OneDay), indexTokens(hist.TwoDay)
	var ethPriceOneDay *float64
	if hist.OneDayBundle != nil {
		p := subgraph.ParseFloat(hist.OneDayBundle.EthPriceUSD)
		ethPriceOneDay = &p
	}

	out := make(map[string]model.TokenData, len(current.Tokens))
	for _, t := range current.Tokens {
		addr := strings.ToLower(t.ID)
		one, ok := oneDayAgo[addr]
		if !ok {
			one = t
		}
		two, ok := twoDaysAgo[addr]
		if !ok {
			two = one
		}
		dec, _ := strconv.ParseUint(t.Decimals, 10, 8)

		tvl := subgraph.ParseFloat(t.TotalValueLockedUSD)
		price := subgraph.ParseFloat(t.DerivedETH) * ethPrice
		var priceOneDay *float64
		if ethPriceOneDay != nil {
			if _, ok := oneDayAgo[addr]; ok {
				p := subgraph.ParseFloat(one.DerivedETH) * *ethPriceOneDay
				priceOneDay = &p
			}
		}
		volume24h, volumeChange := metric.TwoWindowChange(subgraph.ParseFloat(t.VolumeUSD), subgraph.ParseFloat(one.VolumeUSD), subgraph.ParseFloat(two.VolumeUSD))

		out[addr] = model.TokenData{
			Address:        addr,
			NetworkID:      b.Network.ID,
			Symbol:         t.Symbol,
			Name:           t.Name,
			Decimals:       uint8(dec),
			PriceUSD:       price,
			PriceUSDChange: metric.PercentChange(&price, priceOneDay),
			TVLUSD:         tvl,
			TVLUSDChange:   metric.PercentChangeOf(tvl, subgraph.ParseFloat(one.TotalValueLockedUSD)),
			VolumeUSD24h:   volume24h,
			VolumeChange:   volumeChange,
		}
	}
	s.logger.Debug("fetch tokens", zap.String("network", b.Network.ID), zap.Int("tokens", len(out)))
	return out, nil
}

func indexTokens(rows []tokenDataRow) map[string]tokenDataRow {
	out := make(map[string]tokenDataRow, len(rows))
	for _, r := range rows {
		out[strings.ToLower(r.ID)] = r
	}
	return out
}
