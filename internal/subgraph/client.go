// Package subgraph runs GraphQL queries against per-network subgraph endpoints.
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"

	"elasticAnalytics/internal/abort"
)

// Querier executes a GraphQL query and decodes its data object into out.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error
}

// Client wraps a GraphQL endpoint for one network.
type Client struct {
	name     string
	endpoint string
	gql      *graphql.Client
	metrics  *Metrics
	logger   *zap.Logger
}

// NewClient creates a client for endpoint. name labels logs and metrics.
func NewClient(name, endpoint string, httpClient *http.Client, metrics *Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []graphql.ClientOption{}
	if httpClient != nil {
		opts = append(opts, graphql.WithHTTPClient(httpClient))
	}
	return &Client{
		name:     name,
		endpoint: endpoint,
		gql:      graphql.NewClient(endpoint, opts...),
		metrics:  metrics,
		logger:   logger,
	}
}

// Endpoint returns the subgraph URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs query with vars. Subgraphs queried with subgraphError: allow may
// return data alongside errors; in that case the data is decoded and the error
// only logged. An error is returned when no data came back at all.
func (c *Client) Query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if err := abort.Check(ctx); err != nil {
		return err
	}

	req := graphql.NewRequest(query)
	for key, value := range vars {
		req.Var(key, value)
	}
	req.Header.Set("Cache-Control", "no-cache")

	var raw map[string]json.RawMessage
	start := time.Now()
	err := c.gql.Run(ctx, req, &raw)
	c.metrics.observe(c.name, time.Since(start), err)

	if aerr := abort.Check(ctx); aerr != nil {
		return aerr
	}
	if err != nil {
		if !hasData(raw) {
			return fmt.Errorf("subgraph %s: %w", c.name, abort.Wrap(ctx, err))
		}
		c.logger.Warn("subgraph returned partial data", zap.String("network", c.name), zap.Error(err))
	}

	if out == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal subgraph data: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode subgraph data: %w", err)
	}
	return nil
}

func hasData(raw map[string]json.RawMessage) bool {
	for _, value := range raw {
		if len(value) > 0 && string(value) != "null" {
			return true
		}
	}
	return false
}
