package types

import "math/big"

// TokenType is the closed set of token kinds the settlement core
// understands. ERC20 is fungible and always uses ZeroAddress as its
// tranche; ERC1400 is partitioned and transfers may redirect to a
// different destination tranche per the token's canSend check.
type TokenType int

const (
	ERC20 TokenType = iota
	ERC1400
)

func (t TokenType) String() string {
	if t == ERC1400 {
		return "ERC1400"
	}
	return "ERC20"
}

// FeePercentageBase is the denominator used for all percentage arithmetic
// (tenths-of-a-percent granularity).
const FeePercentageBase int64 = 1000

// MinRingSize and MaxRingSize bound the number of participations in a ring.
const (
	MinRingSize = 2
	MaxRingSize = 8
)

// Spendable caches a query of how much of a token an owner can spend via
// a given path. amount-reserved is the live budget; initialAmount freezes
// the starting value for invariant checks. Broker-path spendables are
// shared by pointer across every order that reuses the same
// (broker, owner, token) triple so reservations on one order are visible
// to the next (§9 "Spendable aliasing").
type Spendable struct {
	Initialized   bool
	Amount        *big.Int
	Reserved      *big.Int
	InitialAmount *big.Int
}

// NewSpendable builds an initialized Spendable for the given live amount.
func NewSpendable(amount *big.Int) *Spendable {
	a := new(big.Int).Set(amount)
	return &Spendable{
		Initialized:   true,
		Amount:        a,
		Reserved:      new(big.Int),
		InitialAmount: new(big.Int).Set(a),
	}
}

// Live returns amount - reserved, the live spendable budget.
func (s *Spendable) Live() *big.Int {
	if s == nil || !s.Initialized {
		return new(big.Int)
	}
	return new(big.Int).Sub(s.Amount, s.Reserved)
}

// Reserve adds delta (which may be negative, to release a reservation) to
// the Reserved counter. Reservations persist only for the duration of one
// ring's fill computation; the ring resets them afterward.
func (s *Spendable) Reserve(delta *big.Int) {
	if s == nil {
		return
	}
	s.Reserved.Add(s.Reserved, delta)
}

// ResetReservation clears the Reserved counter back to zero.
func (s *Spendable) ResetReservation() {
	if s == nil {
		return
	}
	s.Reserved = new(big.Int)
}

// OrderInfo is one maker/taker order in the batch. Fields that mutate
// during settlement (Valid, FilledAmountS, the Spendables) are pointers
// or directly mutated so that participations sharing the same order
// object observe each other's updates within one ring and across rings.
type OrderInfo struct {
	Owner          Address
	TokenRecipient Address
	Broker         Address // ZeroAddress if none
	BrokerInterceptor Address
	WalletAddr     Address // ZeroAddress if none

	TokenS   Address
	TokenB   Address
	FeeToken Address

	AmountS   *big.Int
	AmountB   *big.Int
	FeeAmount *big.Int

	TrancheS    Address
	TrancheB    Address
	TrancheFee  Address

	TokenTypeS   TokenType
	TokenTypeB   TokenType
	TokenTypeFee TokenType

	TransferDataS []byte

	ValidSince int64
	ValidUntil int64
	AllOrNone  bool

	// P2P is derived: TokenSFeePercentage>0 || TokenBFeePercentage>0.
	P2P bool

	FeePercentage          int64
	TokenSFeePercentage    int64
	TokenBFeePercentage    int64
	WalletSplitPercentage  int64
	WaiveFeePercentage     int64 // signed

	Hash []byte

	// Mutable settlement state.
	Valid             bool
	FilledAmountS     *big.Int
	TokenSpendableS   *Spendable
	TokenSpendableFee *Spendable
	BrokerSpendableS   *Spendable // shared across orders with the same (broker,owner,tokenS)
	BrokerSpendableFee *Spendable // shared across orders with the same (broker,owner,feeToken)
}

// RemainingAmountS returns amountS - filledAmountS (clamped at zero, it
// should never go negative if invariants hold).
func (o *OrderInfo) RemainingAmountS() *big.Int {
	r := new(big.Int).Sub(o.AmountS, o.FilledAmountS)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

// FeeShortcutApplies reports whether this order's fee is paid out of the
// bought amount (tokenB) rather than a separate fee token/spend, per the
// §4.3 shortcut: feeToken==tokenB && owner==tokenRecipient &&
// feeAmount<=amountB.
func (o *OrderInfo) FeeShortcutApplies() bool {
	return o.FeeToken == o.TokenB &&
		o.Owner == o.TokenRecipient &&
		o.FeeAmount.Cmp(o.AmountB) <= 0
}
