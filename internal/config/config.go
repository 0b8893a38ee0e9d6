package config

// Config is ringsim's complete configuration: where the chain snapshot
// lives, how the optional report service is exposed, and the simulation
// parameters that are not baked into the protocol constants.
type Config struct {
	ChainStore ChainStoreConfig `toml:"chain_store" mapstructure:"chain_store"`
	Server     ServerConfig     `toml:"server" mapstructure:"server"`

	// FeePercentageBase is the denominator percentage fields are expressed
	// against (tenths of a percent by default).
	FeePercentageBase int64 `toml:"fee_percentage_base" mapstructure:"fee_percentage_base"`

	// RebateRateBasisPoints is the burn-rebate rate applied in
	// payFeesAndBurn. Production always runs with this at 0; the
	// accounting path supports a nonzero value so the knob is kept rather
	// than hardcoded.
	RebateRateBasisPoints int64 `toml:"rebate_rate_basis_points" mapstructure:"rebate_rate_basis_points"`

	LogDebug bool `toml:"log_debug" mapstructure:"log_debug"`

	configPath string
}

// ChainStoreConfig configures the Pebble-backed ChainView.
type ChainStoreConfig struct {
	// Path is the Pebble directory ChainView opens read-only snapshots
	// against.
	Path string `toml:"path" mapstructure:"path"`

	// SpendableLRU bounds the host-side spendable-balance cache in front
	// of ChainView reads.
	SpendableLRU int `toml:"spendable_lru" mapstructure:"spendable_lru"`
}

// ServerConfig configures the optional report service: a gRPC health
// endpoint plus a websocket event stream.
type ServerConfig struct {
	GRPCAddress      string `toml:"grpc_address" mapstructure:"grpc_address"`
	WebsocketAddress string `toml:"websocket_address" mapstructure:"websocket_address"`
}

// ConfigPath returns the file the config was loaded from, empty when the
// config came from defaults alone.
func (c *Config) ConfigPath() string {
	return c.configPath
}
