package types

import "math/big"

// Hasher and SignatureVerifier are the narrow cryptographic collaborators
// the core consumes. Concrete implementations (hashing, signature
// verification) live outside the core — see internal/crypto — and are
// injected by the host.
type Hasher interface {
	// HashOrder returns the canonical hash over an order's fields.
	HashOrder(o *OrderInfo) []byte
	// HashMining returns the hash over a batch's ordered ring hashes plus
	// the miner/feeRecipient addresses.
	HashMining(ringHashes [][]byte, miner, feeRecipient Address) []byte
}

type SignatureVerifier interface {
	VerifyOrderSignature(order *OrderInfo, sig []byte) bool
	VerifyDualAuthSignature(order *OrderInfo, sig []byte) bool
	VerifyMinerSignature(miningHash []byte, miner Address, sig []byte) bool
}

// CanSendStatus is the result of an ERC1400 canSend probe. Per §4.3/§4.5,
// a transfer may only proceed when the status is one of the three success
// codes.
type CanSendStatus uint8

const (
	CanSendStatusA0 CanSendStatus = 0xa0
	CanSendStatusA1 CanSendStatus = 0xa1
	CanSendStatusA2 CanSendStatus = 0xa2
)

// Allowed reports whether the status permits the transfer.
func (s CanSendStatus) Allowed() bool {
	return s == CanSendStatusA0 || s == CanSendStatusA1 || s == CanSendStatusA2
}

// ChainView is the read-only façade over on-chain state the core
// consults. It bundles the narrower collaborator interfaces the spec
// names (TradeDelegate, FeeHolder, BurnRateTable, BrokerRegistry, ERC20,
// ERC1400) into the single object SettlementEngine is handed.
//
// Every method is a pure read against one fixed snapshot: for a given
// snapshot, identical queries must return identical results. ChainView
// failures are fatal and propagate out of Simulate (§5, §7.3) — an
// implementation should return an error only when the read itself could
// not be serviced (e.g. storage I/O failure), not to signal "not found"
// (zero values are well-defined answers for every method below).
type ChainView interface {
	TradeDelegate
	FeeHolder
	BurnRateTable
	BrokerRegistry
	ERC20
	ERC1400
}

// FilledCancelledSentinel is TradeDelegate's cancellation marker: a
// filled amount equal to 2^256-1 means the order was cancelled.
var FilledCancelledSentinel = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}()

type TradeDelegate interface {
	// BatchGetFilledAndCheckCancelled returns, 1:1 with the given order
	// hashes, either the filled amount or FilledCancelledSentinel.
	BatchGetFilledAndCheckCancelled(orderHashes [][]byte) ([]*big.Int, error)
	// Filled returns the filled amount for a single order hash.
	Filled(orderHash []byte) (*big.Int, error)
}

type FeeHolder interface {
	FeeBalance(token, holder Address) (*big.Int, error)
}

type BurnRateTable interface {
	// GetBurnRate returns the packed u32: low 16 bits = non-P2P rate,
	// high 16 bits = P2P rate, both out of FeePercentageBase's scale
	// applied at the caller.
	GetBurnRate(token Address) (uint32, error)
}

type BrokerRegistry interface {
	// Get returns the registered interceptor address for (broker, owner)
	// and whether the broker is registered at all.
	Get(broker, owner Address) (interceptor Address, registered bool, err error)
}

type ERC20 interface {
	// SpendableBalance is the balance-and-allowance-bounded spend budget
	// OrderValidator consults; it may be smaller than BalanceOf.
	SpendableBalance(owner, token Address) (*big.Int, error)
	// BalanceOf is the owner's raw on-chain balance, used by the engine
	// to snapshot balancesBefore/balancesAfter independent of allowance.
	BalanceOf(owner, token Address) (*big.Int, error)
}

type ERC1400 interface {
	// CanSend probes whether amount of token can move from `from` to `to`
	// out of fromTranche, given opaque transfer data. It returns the
	// status code and the destination tranche the token will actually
	// route to (which may differ from fromTranche).
	CanSend(token, from, to, fromTranche Address, amount *big.Int, data []byte) (status CanSendStatus, destTranche Address, err error)
}
