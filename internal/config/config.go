package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"elasticAnalytics/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Networks        []model.Network
	BlockServiceURL string
	PoolServiceURL  string
	HTTPTimeout     time.Duration
	MaxWorkers      int
	Out             string
	PGDSN           string
	LogLevel        string

	Network     string
	Pool        string
	Surrounding int
	Account     string
	Window      string
	Timestamps  []int64
	Listen      string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("http-timeout", 30*time.Second)
	v.SetDefault("max-workers", 8)
	v.SetDefault("surrounding", 300)
	v.SetDefault("window", "30d")
	v.SetDefault("listen", ":8080")
	v.SetDefault("out", "-")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var networks []model.Network
	if err := v.UnmarshalKey("networks", &networks); err != nil {
		return Config{}, fmt.Errorf("decode networks: %w", err)
	}
	for i := range networks {
		networks[i].ID = strings.TrimSpace(networks[i].ID)
	}

	timestamps, err := ParseTimestamps(getStringSlice(v, "timestamps"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Networks:        networks,
		BlockServiceURL: v.GetString("block-service-url"),
		PoolServiceURL:  v.GetString("pool-service-url"),
		HTTPTimeout:     v.GetDuration("http-timeout"),
		MaxWorkers:      v.GetInt("max-workers"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		LogLevel:        v.GetString("log-level"),
		Network:         v.GetString("network"),
		Pool:            v.GetString("pool"),
		Surrounding:     v.GetInt("surrounding"),
		Account:         v.GetString("account"),
		Window:          v.GetString("window"),
		Timestamps:      timestamps,
		Listen:          v.GetString("listen"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max-workers must be > 0")
	}
	seen := make(map[string]bool, len(c.Networks))
	for _, n := range c.Networks {
		if n.ID == "" {
			return fmt.Errorf("network without id")
		}
		if n.ID == model.AllChainsID {
			return fmt.Errorf("network id %q is reserved", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate network %q", n.ID)
		}
		seen[n.ID] = true
		if n.Enabled && n.Subgraph == "" {
			return fmt.Errorf("network %q has no subgraph", n.ID)
		}
	}
	return nil
}

// FindNetwork returns the enabled network with the given id.
func (c Config) FindNetwork(id string) (model.Network, error) {
	for _, n := range model.ActiveNetworks(c.Networks) {
		if n.ID == id {
			return n, nil
		}
	}
	return model.Network{}, fmt.Errorf("network %q is not configured or disabled", id)
}

// ParseAddress validates a hex address and returns it lower-cased, the form
// subgraph ids use.
func ParseAddress(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}
	return strings.ToLower(common.HexToAddress(input).Hex()), nil
}

// ParseTimestamps parses each value with ParseTimestamp.
func ParseTimestamps(inputs []string) ([]int64, error) {
	out := make([]int64, 0, len(inputs))
	for _, in := range inputs {
		ts, err := ParseTimestamp(in)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", in, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return splitAndClean(strings.Join(typed, ","))
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
