package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/stretchr/testify/require"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/model"
)

func testNetworks() []model.Network {
	return []model.Network{
		{ID: "ethereum", Enabled: true},
		{ID: "polygon", Enabled: true},
		{ID: "bsc", Enabled: true},
		{ID: "fantom", Enabled: false},
	}
}

func sumInts(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func TestFetchAcrossNetworksIsolatesFailures(t *testing.T) {
	values := map[string]int{"ethereum": 10, "polygon": 20, "bsc": 30, "fantom": 40}
	fetch := func(ctx context.Context, n model.Network) (int, error) {
		if n.ID == "polygon" {
			return 999, errors.New("subgraph down")
		}
		return values[n.ID], nil
	}

	res, err := FetchAcrossNetworks(context.Background(), pond.NewPool(4), testNetworks(), fetch, sumInts, nil)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"ethereum": 10, "polygon": 0, "bsc": 30}, res.PerNetwork)
	require.Equal(t, 40, res.AllChains)
	require.Len(t, res.Failed, 1)
	require.Contains(t, res.Failed, "polygon")
}

func TestFetchAcrossNetworksAllFail(t *testing.T) {
	fetch := func(ctx context.Context, n model.Network) (int, error) {
		return 0, errors.New("down")
	}
	res, err := FetchAcrossNetworks(context.Background(), pond.NewPool(2), testNetworks(), fetch, sumInts, nil)
	require.NoError(t, err)
	require.Len(t, res.Failed, 3)
	require.Zero(t, res.AllChains)
}

func TestFetchAcrossNetworksAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context, n model.Network) (int, error) {
		cancel()
		return 1, nil
	}
	res, err := FetchAcrossNetworks(ctx, pond.NewPool(1), testNetworks(), fetch, sumInts, nil)
	require.True(t, abort.Is(err))
	require.Nil(t, res.PerNetwork)
}
