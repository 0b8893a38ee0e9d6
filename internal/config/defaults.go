package config

import "github.com/spf13/viper"

// setDefaults seeds every knob ringsim will read so that a config file can
// override as little or as much as it likes.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chain_store.path", "./ringsim-data/chainstore")
	v.SetDefault("chain_store.spendable_lru", 4096)

	v.SetDefault("server.grpc_address", "127.0.0.1:50061")
	v.SetDefault("server.websocket_address", "127.0.0.1:8765")

	v.SetDefault("fee_percentage_base", 1000)
	v.SetDefault("rebate_rate_basis_points", 0)

	v.SetDefault("log_debug", false)
}
