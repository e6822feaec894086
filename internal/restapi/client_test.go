package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ethereum/api/v1/block" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("timestamps"); got != "100,200" {
			t.Errorf("unexpected timestamps %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"timestamp":100,"number":11},{"timestamp":200,"number":22}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "", server.Client())
	blocks, err := client.Blocks(context.Background(), "ethereum", []int64{100, 200})
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(blocks) != 2 || blocks[1].Number != 22 || blocks[1].Timestamp != 200 {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
}

func TestBlocksStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", server.Client())
	if _, err := client.Blocks(context.Background(), "ethereum", []int64{1}); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestElasticPools(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/polygon/api/v1/elastic/pools" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("perPage") != "50" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"totalItems":1,"pools":[{"address":"0xpool","feeTier":"300","tick":-5,"tvlUsd":"1234.5","token0":{"address":"0xa","symbol":"A","decimals":18},"token1":{"address":"0xb","symbol":"B","decimals":"6"}}]}}`))
	}))
	defer server.Close()

	client := NewClient("", server.URL, server.Client())
	page, err := client.ElasticPools(context.Background(), "polygon", 2, 50)
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	if page.TotalItems != 1 || len(page.Pools) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	pool := page.Pools[0]
	if pool.FeeTier.String() != "300" || pool.Tick.String() != "-5" || pool.Token1.Decimals.String() != "6" {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if tvl, _ := pool.TVLUSD.Float64(); tvl != 1234.5 {
		t.Fatalf("unexpected tvl %v", tvl)
	}
}
