// Package restapi talks to the KyberSwap block-index and pool-farm REST services.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"elasticAnalytics/internal/abort"
	"elasticAnalytics/internal/model"
)

// Client issues GET requests against the block and pool services.
type Client struct {
	blockBase  string
	poolBase   string
	httpClient *http.Client
}

// NewClient builds a client. Either base URL may be empty when the service is unused.
func NewClient(blockServiceURL, poolServiceURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		blockBase:  strings.TrimRight(blockServiceURL, "/"),
		poolBase:   strings.TrimRight(poolServiceURL, "/"),
		httpClient: httpClient,
	}
}

type blocksResponse struct {
	Data []struct {
		Timestamp int64  `json:"timestamp"`
		Number    uint64 `json:"number"`
	} `json:"data"`
}

// Blocks resolves timestamps through GET {base}/{route}/api/v1/block?timestamps=t1,t2.
func (c *Client) Blocks(ctx context.Context, route string, timestamps []int64) ([]model.BlockRef, error) {
	if c.blockBase == "" {
		return nil, fmt.Errorf("block service url is not configured")
	}
	if len(timestamps) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(timestamps))
	for _, ts := range timestamps {
		parts = append(parts, strconv.FormatInt(ts, 10))
	}
	endpoint := fmt.Sprintf("%s/%s/api/v1/block?timestamps=%s", c.blockBase, route, strings.Join(parts, ","))

	var resp blocksResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	out := make([]model.BlockRef, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, model.BlockRef{Timestamp: item.Timestamp, Number: item.Number})
	}
	return out, nil
}

// ElasticPoolToken is token metadata in a pool-service record.
type ElasticPoolToken struct {
	Address  string      `json:"address"`
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
	Decimals json.Number `json:"decimals"`
}

// ElasticPool is one pool from the pool-farm service.
type ElasticPool struct {
	Address            string           `json:"address"`
	FeeTier            json.Number      `json:"feeTier"`
	Tick               json.Number      `json:"tick"`
	Liquidity          string           `json:"liquidity"`
	SqrtPrice          string           `json:"sqrtPrice"`
	Token0             ElasticPoolToken `json:"token0"`
	Token1             ElasticPoolToken `json:"token1"`
	TVLUSD             json.Number      `json:"tvlUsd"`
	TVLUSDOneDayAgo    json.Number      `json:"tvlUsdOneDayAgo"`
	VolumeUSD          json.Number      `json:"volumeUsd"`
	VolumeUSDOneDayAgo json.Number      `json:"volumeUsdOneDayAgo"`
	VolumeUSDTwoDayAgo json.Number      `json:"volumeUsdTwoDaysAgo"`
	FeesUSD            json.Number      `json:"feesUsd"`
	FeesUSDOneDayAgo   json.Number      `json:"feesUsdOneDayAgo"`
}

// ElasticPoolsPage is one page of the pool list.
type ElasticPoolsPage struct {
	Pools      []ElasticPool `json:"pools"`
	TotalItems int           `json:"totalItems"`
}

type poolsResponse struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    ElasticPoolsPage `json:"data"`
}

// ElasticPools fetches GET {base}/{route}/api/v1/elastic/pools?page=&perPage=.
func (c *Client) ElasticPools(ctx context.Context, route string, page, perPage int) (ElasticPoolsPage, error) {
	if c.poolBase == "" {
		return ElasticPoolsPage{}, fmt.Errorf("pool service url is not configured")
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	endpoint := fmt.Sprintf("%s/%s/api/v1/elastic/pools?%s", c.poolBase, route, query.Encode())

	var resp poolsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return ElasticPoolsPage{}, err
	}
	return resp.Data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := abort.Check(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return abort.Wrap(ctx, fmt.Errorf("get %s: %w", endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return abort.Wrap(ctx, fmt.Errorf("decode %s: %w", endpoint, err))
	}
	return abort.Check(ctx)
}
