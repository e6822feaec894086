package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"elasticAnalytics/internal/model"
)

func TestMergeGlobalSumsRawTotals(t *testing.T) {
	a := DeriveGlobal(
		model.GlobalTotals{TVLUSD: 110, VolumeUSD: 300, FeesUSD: 3, TxCount: 30},
		model.GlobalTotals{TVLUSD: 100, VolumeUSD: 200, FeesUSD: 2, TxCount: 20},
		model.GlobalTotals{TVLUSD: 90, VolumeUSD: 150, FeesUSD: 1, TxCount: 10},
	)
	b := DeriveGlobal(
		model.GlobalTotals{TVLUSD: 90, VolumeUSD: 100, FeesUSD: 1, TxCount: 10},
		model.GlobalTotals{TVLUSD: 100, VolumeUSD: 50, FeesUSD: 0, TxCount: 5},
		model.GlobalTotals{TVLUSD: 100, VolumeUSD: 0, FeesUSD: 0, TxCount: 0},
	)

	merged := MergeGlobal([]model.GlobalData{a, b})
	require.Equal(t, 200.0, merged.Current.TVLUSD)
	require.Equal(t, 0.0, merged.TVLChange)
	require.Equal(t, 150.0, merged.VolumeUSD24h)
	// previous windows: 50 + 50 = 100; last windows: 100 + 50 = 150.
	require.Equal(t, 50.0, merged.VolumeChange)
	require.Equal(t, 15.0, merged.TxCount24h)
}

func TestMergeGlobalIgnoresZeroValues(t *testing.T) {
	a := DeriveGlobal(
		model.GlobalTotals{TVLUSD: 110},
		model.GlobalTotals{TVLUSD: 100},
		model.GlobalTotals{TVLUSD: 100},
	)
	merged := MergeGlobal([]model.GlobalData{a, {}})
	require.Equal(t, a, merged)
}

func TestMergeDayData(t *testing.T) {
	merged := MergeDayData([][]model.DayDatum{
		{{Date: 200, VolumeUSD: 1, TVLUSD: 10}, {Date: 100, VolumeUSD: 2, TVLUSD: 20}},
		{{Date: 200, VolumeUSD: 3, TVLUSD: 30, FeesUSD: 1}},
		nil,
	})
	require.Equal(t, []model.DayDatum{
		{Date: 100, VolumeUSD: 2, TVLUSD: 20},
		{Date: 200, VolumeUSD: 4, TVLUSD: 40, FeesUSD: 1},
	}, merged)
}

func TestMergePoolsCollisionLogsAndKeepsFirst(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	merge := MergePools(zap.New(core))

	merged := merge([]map[string]model.PoolData{
		{"0xaaa": {Address: "0xaaa", NetworkID: "ethereum"}},
		{"0xaaa": {Address: "0xaaa", NetworkID: "polygon"}, "0xbbb": {Address: "0xbbb", NetworkID: "polygon"}},
	})
	require.Len(t, merged, 2)
	require.Equal(t, "ethereum", merged["0xaaa"].NetworkID)
	require.Equal(t, 1, logs.FilterMessage("address collision across networks").Len())
}

func TestMergeTokens(t *testing.T) {
	merged := MergeTokens(nil)([]map[string]model.TokenData{
		{"0x1": {Symbol: "A"}},
		{"0x2": {Symbol: "B"}},
	})
	require.Len(t, merged, 2)
}
