package chainstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// GenesisBalance is one row of the JSON seed file the `genesis` CLI
// command loads: an owner's balance and (optionally) allowance for a
// single token.
type GenesisBalance struct {
	Owner     string `json:"owner"`
	Token     string `json:"token"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance,omitempty"`
}

// GenesisFile is the full seed document: balances plus the auxiliary
// per-token burn rates the core's BurnRateTable consults.
type GenesisFile struct {
	Balances  []GenesisBalance          `json:"balances"`
	BurnRates map[string]uint32         `json:"burnRates,omitempty"`
	Brokers   map[string]map[string]string `json:"brokers,omitempty"` // broker -> owner -> interceptor
}

// Seed writes a GenesisFile into a fresh store in one Pebble batch.
func (s *Store) Seed(g *GenesisFile) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, row := range g.Balances {
		owner, err := types.AddressFromHex(row.Owner)
		if err != nil {
			return fmt.Errorf("chainstore: genesis balance owner %q: %w", row.Owner, err)
		}
		token, err := types.AddressFromHex(row.Token)
		if err != nil {
			return fmt.Errorf("chainstore: genesis balance token %q: %w", row.Token, err)
		}
		bal, ok := new(big.Int).SetString(row.Balance, 10)
		if !ok {
			return fmt.Errorf("chainstore: genesis balance %q is not a base-10 integer", row.Balance)
		}
		if err := batch.Set(balanceKey(owner, token), bal.Bytes(), nil); err != nil {
			return err
		}

		allowance := bal
		if row.Allowance != "" {
			allowance, ok = new(big.Int).SetString(row.Allowance, 10)
			if !ok {
				return fmt.Errorf("chainstore: genesis allowance %q is not a base-10 integer", row.Allowance)
			}
		}
		if err := batch.Set(allowanceKey(owner, token), allowance.Bytes(), nil); err != nil {
			return err
		}
	}

	for tokenHex, rate := range g.BurnRates {
		token, err := types.AddressFromHex(tokenHex)
		if err != nil {
			return fmt.Errorf("chainstore: genesis burn rate token %q: %w", tokenHex, err)
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], rate)
		if err := batch.Set(burnRateKey(token), buf[:], nil); err != nil {
			return err
		}
	}

	for brokerHex, owners := range g.Brokers {
		broker, err := types.AddressFromHex(brokerHex)
		if err != nil {
			return fmt.Errorf("chainstore: genesis broker %q: %w", brokerHex, err)
		}
		for ownerHex, interceptorHex := range owners {
			owner, err := types.AddressFromHex(ownerHex)
			if err != nil {
				return fmt.Errorf("chainstore: genesis broker owner %q: %w", ownerHex, err)
			}
			interceptor, err := types.AddressFromHex(interceptorHex)
			if err != nil {
				return fmt.Errorf("chainstore: genesis broker interceptor %q: %w", interceptorHex, err)
			}
			if err := batch.Set(brokerKey(broker, owner), interceptor[:], nil); err != nil {
				return err
			}
		}
	}

	return batch.Commit(pebble.Sync)
}

// LoadGenesisJSON decodes a genesis seed document from raw JSON bytes.
func LoadGenesisJSON(data []byte) (*GenesisFile, error) {
	var g GenesisFile
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("chainstore: decode genesis file: %w", err)
	}
	return &g, nil
}
