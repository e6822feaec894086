package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/aggregate"
	"elasticAnalytics/internal/model"
	"elasticAnalytics/internal/ticks"
)

const poolAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"

type fakeExplorer struct {
	gotSurrounding int
	gotWindowStart int64
	gotTimestamps  []int64
	ticksErr       error
}

func (f *fakeExplorer) GlobalOverview(ctx context.Context) (aggregate.Results[model.GlobalData], error) {
	return aggregate.Results[model.GlobalData]{
		PerNetwork: map[string]model.GlobalData{"ethereum": {TVLChange: 5}, "polygon": {}},
		AllChains:  model.GlobalData{TVLChange: 5},
		Failed:     map[string]error{"polygon": errors.New("down")},
	}, nil
}

func (f *fakeExplorer) DayData(ctx context.Context, start int64) (aggregate.Results[[]model.DayDatum], error) {
	return aggregate.Results[[]model.DayDatum]{AllChains: []model.DayDatum{{Date: start}}}, nil
}

func (f *fakeExplorer) TopPools(ctx context.Context) (aggregate.Results[map[string]model.PoolData], error) {
	return aggregate.Results[map[string]model.PoolData]{}, abort.ErrAborted
}

func (f *fakeExplorer) TopTokens(ctx context.Context) (aggregate.Results[map[string]model.TokenData], error) {
	return aggregate.Results[map[string]model.TokenData]{AllChains: map[string]model.TokenData{"0x1": {Symbol: "A"}}}, nil
}

func (f *fakeExplorer) PoolTicks(ctx context.Context, networkID, pool string, n int) (*model.PoolTickData, error) {
	if networkID != "ethereum" {
		return nil, fmt.Errorf("%w: %s", aggregate.ErrUnknownNetwork, networkID)
	}
	if f.ticksErr != nil {
		return nil, f.ticksErr
	}
	f.gotSurrounding = n
	return &model.PoolTickData{PoolAddress: pool, TickSpacing: 60}, nil
}

func (f *fakeExplorer) PoolChart(ctx context.Context, networkID, pool string) ([]model.DayDatum, error) {
	return []model.DayDatum{{Date: 1}}, nil
}

func (f *fakeExplorer) PoolTransactions(ctx context.Context, networkID, pool string) ([]model.Transaction, error) {
	return nil, errors.New("subgraph down")
}

func (f *fakeExplorer) AccountSeries(ctx context.Context, networkID, account string, windowStart int64) ([]model.SeriesPoint, error) {
	f.gotWindowStart = windowStart
	return nil, nil
}

func (f *fakeExplorer) ResolveBlocks(ctx context.Context, networkID string, timestamps []int64) ([]model.BlockRef, error) {
	f.gotTimestamps = timestamps
	return []model.BlockRef{{Timestamp: timestamps[0], Number: 7}}, nil
}

func newTestServer(t *testing.T, explorer Explorer) *httptest.Server {
	t.Helper()
	s := NewServer(explorer, prometheus.NewRegistry(), nil)
	s.now = func() time.Time { return time.Unix(100*86400, 0) }
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, bytes.TrimSpace(body)
}

func TestOverviewListsFailedNetworks(t *testing.T) {
	srv := newTestServer(t, &fakeExplorer{})
	resp, body := get(t, srv, "/v1/overview")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		PerNetwork map[string]model.GlobalData `json:"per_network"`
		AllChains  model.GlobalData            `json:"all_chains"`
		Failed     []string                    `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, []string{"polygon"}, out.Failed)
	require.Equal(t, 5.0, out.AllChains.TVLChange)
	require.Len(t, out.PerNetwork, 2)
}

func TestDayDataStart(t *testing.T) {
	srv := newTestServer(t, &fakeExplorer{})
	resp, body := get(t, srv, "/v1/daydata?start=1700000000")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"date":1700000000`)

	resp, _ = get(t, srv, "/v1/daydata?start=soon")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPoolTicks(t *testing.T) {
	explorer := &fakeExplorer{}
	srv := newTestServer(t, explorer)

	resp, body := get(t, srv, "/v1/networks/ethereum/pools/0x123/ticks")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = get(t, srv, "/v1/networks/ethereum/pools/"+poolAddr+"/ticks?surrounding=50")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 50, explorer.gotSurrounding)
	require.Contains(t, string(body), poolAddr)

	resp, _ = get(t, srv, "/v1/networks/ethereum/pools/"+poolAddr+"/ticks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, ticks.DefaultSurroundingTicks, explorer.gotSurrounding)

	resp, _ = get(t, srv, "/v1/networks/ethereum/pools/"+poolAddr+"/ticks?surrounding=-1")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv, "/v1/networks/nowhere/pools/"+poolAddr+"/ticks")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	explorer.ticksErr = fmt.Errorf("pool: %w", ticks.ErrUnknownFeeTier)
	resp, _ = get(t, srv, "/v1/networks/ethereum/pools/"+poolAddr+"/ticks")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestErrorsMapToStatus(t *testing.T) {
	srv := newTestServer(t, &fakeExplorer{})

	resp, _ := get(t, srv, "/v1/pools")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := get(t, srv, "/v1/networks/ethereum/pools/"+poolAddr+"/transactions")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, string(body), "subgraph down")
}

func TestAccountSeriesWindow(t *testing.T) {
	explorer := &fakeExplorer{}
	srv := newTestServer(t, explorer)

	resp, body := get(t, srv, "/v1/networks/ethereum/accounts/"+poolAddr+"/series?window=7d")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "[]", string(body))
	require.Equal(t, int64(93*86400), explorer.gotWindowStart)

	resp, _ = get(t, srv, "/v1/networks/ethereum/accounts/"+poolAddr+"/series?window=fortnight")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlocks(t *testing.T) {
	explorer := &fakeExplorer{}
	srv := newTestServer(t, explorer)

	resp, body := get(t, srv, "/v1/networks/ethereum/blocks?timestamps=1700000000,1700003600")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []int64{1700000000, 1700003600}, explorer.gotTimestamps)
	require.Contains(t, string(body), `"number":7`)

	resp, _ = get(t, srv, "/v1/networks/ethereum/blocks")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeExplorer{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
