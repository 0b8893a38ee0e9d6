package config

import "fmt"

// ValidateConfig performs sanity checks that cannot be expressed as mere
// defaults: nothing here depends on file I/O.
func ValidateConfig(c *Config) error {
	if c.ChainStore.Path == "" {
		return fmt.Errorf("chain_store.path must not be empty")
	}
	if c.ChainStore.SpendableLRU <= 0 {
		return fmt.Errorf("chain_store.spendable_lru must be positive, got %d", c.ChainStore.SpendableLRU)
	}
	if c.FeePercentageBase <= 0 {
		return fmt.Errorf("fee_percentage_base must be positive, got %d", c.FeePercentageBase)
	}
	if c.RebateRateBasisPoints < 0 || c.RebateRateBasisPoints > 10000 {
		return fmt.Errorf("rebate_rate_basis_points must be in [0, 10000], got %d", c.RebateRateBasisPoints)
	}
	if c.Server.GRPCAddress != "" && c.Server.GRPCAddress == c.Server.WebsocketAddress {
		return fmt.Errorf("server.grpc_address and server.websocket_address must differ, both %q", c.Server.GRPCAddress)
	}
	return nil
}
