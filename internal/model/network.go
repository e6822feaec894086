package model

// Network describes one configured chain and the endpoints used to query it.
type Network struct {
	ID                string `mapstructure:"id" json:"id"`
	Name              string `mapstructure:"name" json:"name"`
	ChainID           uint64 `mapstructure:"chain-id" json:"chain_id"`
	Subgraph          string `mapstructure:"subgraph" json:"subgraph"`
	BlockSubgraph     string `mapstructure:"block-subgraph" json:"block_subgraph,omitempty"`
	BlockServiceRoute string `mapstructure:"block-service-route" json:"block_service_route,omitempty"`
	PoolServiceRoute  string `mapstructure:"pool-service-route" json:"pool_service_route,omitempty"`
	RPC               string `mapstructure:"rpc" json:"-"`
	UseBlockService   bool   `mapstructure:"use-block-service" json:"use_block_service"`
	Enabled           bool   `mapstructure:"enabled" json:"enabled"`
}

// AllChainsID keys the merged view across every enabled network.
const AllChainsID = "allChains"

// ActiveNetworks filters out disabled networks, keeping order.
func ActiveNetworks(networks []Network) []Network {
	out := make([]Network, 0, len(networks))
	for _, n := range networks {
		if !n.Enabled || n.ID == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}
