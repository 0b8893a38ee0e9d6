// Package chainstore is the default on-disk backing for the settlement
// core's ChainView: a Pebble-keyed store with one key-prefix per
// collaborator table, queried through a fixed Pebble snapshot so that
// every read a single Simulate call makes is consistent with every
// other.
package chainstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

var ErrNotFound = errors.New("chainstore: key not found")

const (
	prefixBalance   = "bal/"
	prefixAllowance = "allow/"
	prefixFilled    = "filled/"
	prefixFeeBal    = "feebal/"
	prefixBurn      = "burn/"
	prefixBroker    = "broker/"
)

// Store owns the long-lived Pebble handle. Open it once per process;
// call Snapshot() once per Simulate call.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("chainstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot opens a read-only, point-in-time view over the store plus a
// spendable-balance cache in front of it. One Snapshot should back
// exactly one Simulate call, consistent with "one simulation is a pure
// function of (RingsInput, ChainView snapshot)".
func (s *Store) Snapshot(spendableLRU int) (*Snapshot, error) {
	cache, err := lru.New[string, *big.Int](spendableLRU)
	if err != nil {
		return nil, fmt.Errorf("chainstore: build spendable cache: %w", err)
	}
	return &Snapshot{
		snap:  s.db.NewSnapshot(),
		cache: cache,
	}, nil
}

// Snapshot is a single point-in-time ChainView implementation. It
// satisfies types.ChainView in full.
type Snapshot struct {
	snap  *pebble.Snapshot
	cache *lru.Cache[string, *big.Int]
}

func (sn *Snapshot) Close() error {
	return sn.snap.Close()
}

func balanceKey(owner, token types.Address) []byte {
	return []byte(prefixBalance + owner.Hex32() + "/" + token.Hex32())
}

func allowanceKey(owner, token types.Address) []byte {
	return []byte(prefixAllowance + owner.Hex32() + "/" + token.Hex32())
}

func filledKey(orderHash []byte) []byte {
	return append([]byte(prefixFilled), orderHash...)
}

func feeBalKey(token, holder types.Address) []byte {
	return []byte(prefixFeeBal + holder.Hex32() + "/" + token.Hex32())
}

func burnRateKey(token types.Address) []byte {
	return []byte(prefixBurn + token.Hex32())
}

func brokerKey(broker, owner types.Address) []byte {
	return []byte(prefixBroker + broker.Hex32() + "/" + owner.Hex32())
}

func (sn *Snapshot) getBigInt(key []byte) (*big.Int, error) {
	val, closer, err := sn.snap.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	defer closer.Close()
	return new(big.Int).SetBytes(val), nil
}

// BalanceOf implements types.ERC20.
func (sn *Snapshot) BalanceOf(owner, token types.Address) (*big.Int, error) {
	return sn.getBigInt(balanceKey(owner, token))
}

// SpendableBalance implements types.ERC20: min(balance, allowance),
// cached by (owner, token) for the lifetime of this snapshot.
func (sn *Snapshot) SpendableBalance(owner, token types.Address) (*big.Int, error) {
	ck := owner.Hex32() + "/" + token.Hex32()
	if v, ok := sn.cache.Get(ck); ok {
		return new(big.Int).Set(v), nil
	}
	bal, err := sn.getBigInt(balanceKey(owner, token))
	if err != nil {
		return nil, err
	}
	allowance, err := sn.getBigInt(allowanceKey(owner, token))
	if err != nil {
		return nil, err
	}
	spendable := bal
	if allowance.Cmp(bal) < 0 {
		spendable = allowance
	}
	sn.cache.Add(ck, spendable)
	return new(big.Int).Set(spendable), nil
}

// Filled implements types.TradeDelegate.
func (sn *Snapshot) Filled(orderHash []byte) (*big.Int, error) {
	return sn.getBigInt(filledKey(orderHash))
}

// BatchGetFilledAndCheckCancelled implements types.TradeDelegate.
func (sn *Snapshot) BatchGetFilledAndCheckCancelled(hashes [][]byte) ([]*big.Int, error) {
	out := make([]*big.Int, len(hashes))
	for i, h := range hashes {
		v, err := sn.getBigInt(filledKey(h))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FeeBalance implements types.FeeHolder.
func (sn *Snapshot) FeeBalance(token, holder types.Address) (*big.Int, error) {
	return sn.getBigInt(feeBalKey(token, holder))
}

// GetBurnRate implements types.BurnRateTable. Burn rates are stored as a
// big-endian uint32: low 16 bits non-P2P, high 16 bits P2P.
func (sn *Snapshot) GetBurnRate(token types.Address) (uint32, error) {
	val, closer, err := sn.snap.Get(burnRateKey(token))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	defer closer.Close()
	if len(val) != 4 {
		return 0, fmt.Errorf("chainstore: burn rate for %s is %d bytes, want 4", token, len(val))
	}
	return binary.BigEndian.Uint32(val), nil
}

// Get implements types.BrokerRegistry.
func (sn *Snapshot) Get(broker, owner types.Address) (types.Address, bool, error) {
	val, closer, err := sn.snap.Get(brokerKey(broker, owner))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return types.ZeroAddress, false, nil
		}
		return types.ZeroAddress, false, err
	}
	defer closer.Close()
	if len(val) != 20 {
		return types.ZeroAddress, false, fmt.Errorf("chainstore: broker interceptor for %s is %d bytes, want 20", broker, len(val))
	}
	var interceptor types.Address
	copy(interceptor[:], val)
	return interceptor, true, nil
}

// CanSend implements types.ERC1400. The simulator has no on-chain
// tranche-routing contract to call, so the default store answers from
// "cansend/<token>/<fromTranche>" entries when they are present. Seed in
// genesis.go writes no such entries; an absent entry is treated as an
// always-allowed, same-tranche route.
func (sn *Snapshot) CanSend(token, from, to, fromTranche types.Address, amount *big.Int, data []byte) (types.CanSendStatus, types.Address, error) {
	key := []byte("cansend/" + token.Hex32() + "/" + fromTranche.Hex32())
	val, closer, err := sn.snap.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return types.CanSendStatusA0, fromTranche, nil
		}
		return 0, types.ZeroAddress, err
	}
	defer closer.Close()
	if len(val) != 21 {
		return 0, types.ZeroAddress, fmt.Errorf("chainstore: cansend route for %s is %d bytes, want 21", token, len(val))
	}
	status := types.CanSendStatus(val[0])
	var dest types.Address
	copy(dest[:], val[1:])
	return status, dest, nil
}
