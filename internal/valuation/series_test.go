package valuation

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"elasticAnalytics/internal/model"
)

const day = int64(DaySeconds)

// aboveRange builds a snapshot whose holdings are all token1 valued at 1 ETH.
func aboveRange(positionID string, ts int64, liquidity int64) model.PositionSnapshot {
	return model.PositionSnapshot{
		ID:               positionID + "-" + big.NewInt(ts).String(),
		PositionID:       positionID,
		Timestamp:        ts,
		TickLower:        -600,
		TickUpper:        600,
		Tick:             1200,
		Liquidity:        big.NewInt(liquidity),
		Token0Decimals:   0,
		Token1Decimals:   0,
		Token0DerivedETH: decimal.NewFromInt(1),
		Token1DerivedETH: decimal.NewFromInt(1),
	}
}

func ethValue(s model.PositionSnapshot) decimal.Decimal {
	v, _ := positionETH(s)
	return v
}

func constantPrice(p int64) PriceLookup {
	return func(int64) (decimal.Decimal, bool) { return decimal.NewFromInt(p), true }
}

func TestBuildValueSeriesEmpty(t *testing.T) {
	require.Nil(t, BuildValueSeries(nil, 0, 10*day, constantPrice(1)))
}

func TestBuildValueSeriesStepFunction(t *testing.T) {
	first := aboveRange("p1", 1*day+100, 1_000_000_000)
	second := aboveRange("p1", 3*day+100, 2_000_000_000)

	series := BuildValueSeries([]model.PositionSnapshot{second, first}, 0, 4*day+100, constantPrice(2))
	require.Len(t, series, 4)

	v1 := ethValue(first).Mul(decimal.NewFromInt(2))
	v2 := ethValue(second).Mul(decimal.NewFromInt(2))
	require.True(t, v1.IsPositive())

	want := []struct {
		date  int64
		value decimal.Decimal
	}{
		{1 * day, v1},
		{2 * day, v1},
		{3 * day, v2},
		{4 * day, v2},
	}
	for i, w := range want {
		require.Equal(t, w.date, series[i].Date)
		require.True(t, w.value.Equal(series[i].Value), "day %d: got %s want %s", i, series[i].Value, w.value)
	}
}

func TestBuildValueSeriesMissingPriceIsZero(t *testing.T) {
	snap := aboveRange("p1", 1*day, 1_000_000_000)
	prices := MapPrices(map[int64]decimal.Decimal{
		1 * day: decimal.NewFromInt(1),
		3 * day: decimal.NewFromInt(1),
	})

	series := BuildValueSeries([]model.PositionSnapshot{snap}, 0, 3*day, prices)
	require.Len(t, series, 3)
	require.True(t, series[0].Value.IsPositive())
	require.Equal(t, 2*day, series[1].Date)
	require.True(t, series[1].Value.IsZero())
	require.True(t, series[2].Value.Equal(series[0].Value))
}

func TestBuildValueSeriesSeedsFromBeforeWindow(t *testing.T) {
	old := aboveRange("p1", 1*day, 1_000_000_000)
	other := aboveRange("p2", 5*day+10, 3_000_000_000)

	series := BuildValueSeries([]model.PositionSnapshot{old, other}, 4*day, 5*day+20, constantPrice(1))
	require.Len(t, series, 2)
	require.Equal(t, 4*day, series[0].Date)
	require.True(t, series[0].Value.Equal(ethValue(old)))
	require.True(t, series[1].Value.Equal(ethValue(old).Add(ethValue(other))))
}

func TestBuildValueSeriesNewestWins(t *testing.T) {
	newer := aboveRange("p1", 2*day+500, 5_000_000_000)
	older := aboveRange("p1", 2*day+100, 1_000_000_000)

	series := BuildValueSeries([]model.PositionSnapshot{newer, older}, 0, 2*day+600, constantPrice(1))
	require.Len(t, series, 1)
	require.True(t, series[0].Value.Equal(ethValue(newer)))
}

func TestBuildValueSeriesFees(t *testing.T) {
	snap := aboveRange("p1", 1*day, 0)
	snap.CollectedFeesToken0 = decimal.NewFromInt(3)
	snap.CollectedFeesToken1 = decimal.NewFromInt(4)

	series := BuildValueSeries([]model.PositionSnapshot{snap}, 0, 1*day, constantPrice(10))
	require.Len(t, series, 1)
	require.True(t, series[0].Fees.Equal(decimal.NewFromInt(70)))
	require.True(t, series[0].Value.IsZero())
}

func TestBuildPositionSeries(t *testing.T) {
	a := aboveRange("a", 1*day, 1_000_000_000)
	b := aboveRange("b", 1*day, 7_000_000_000)

	series := BuildPositionSeries([]model.PositionSnapshot{a, b}, "a", 0, 1*day, constantPrice(1))
	require.Len(t, series, 1)
	require.True(t, series[0].Value.Equal(ethValue(a)))
}

func TestBuckets(t *testing.T) {
	require.Equal(t, []int64{2 * day, 3 * day}, Buckets(0, 2*day+5, 3*day+5))
	require.Equal(t, []int64{3 * day}, Buckets(3*day+1, 0, 3*day+5))
	require.Nil(t, Buckets(5*day, 0, 3*day))
	require.Equal(t, int64(-1), DayBucket(-1))
}
