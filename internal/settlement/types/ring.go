package types

import "math/big"

// Participation is one order's slot inside a ring. Participation i sells
// to participation i-1 (mod n) and buys from participation i+1 (mod n).
type Participation struct {
	Order *OrderInfo

	FillAmountS *big.Int
	FillAmountB *big.Int
	SplitS      *big.Int

	FeeAmount  *big.Int
	FeeAmountS *big.Int
	FeeAmountB *big.Int

	RebateFee *big.Int
	RebateS   *big.Int
	RebateB   *big.Int

	// RingSpendableS/Fee are the spendable snapshots taken at the start of
	// this ring's fill computation (before this ring's own reservations).
	RingSpendableS   *big.Int
	RingSpendableFee *big.Int
}

// NewParticipation wraps order in a fresh, zero-valued Participation.
func NewParticipation(order *OrderInfo) *Participation {
	return &Participation{
		Order:            order,
		FillAmountS:      new(big.Int),
		FillAmountB:      new(big.Int),
		SplitS:           new(big.Int),
		FeeAmount:        new(big.Int),
		FeeAmountS:       new(big.Int),
		FeeAmountB:       new(big.Int),
		RebateFee:        new(big.Int),
		RebateS:          new(big.Int),
		RebateB:          new(big.Int),
		RingSpendableS:   new(big.Int),
		RingSpendableFee: new(big.Int),
	}
}

// Ring is a cyclic chain of 2..8 orders where order i's tokenS equals
// order i-1's tokenB. Settlement propagates fill amounts around the
// cycle.
type Ring struct {
	Participations []*Participation
	Hash           []byte
	Valid          bool

	// MinerFeesToOrdersPercentage accumulates -waiveFeePercentage across
	// participations with a negative waive; it must not exceed
	// FeePercentageBase.
	MinerFeesToOrdersPercentage int64

	// FeeBalances records every fee/burn/rebate credit this ring produced;
	// the engine merges these into the global fee-balance book.
	FeeBalances *BalanceAccumulator
}

// Next returns participation (i+1) mod n — the order this participation
// buys from.
func (r *Ring) Next(i int) *Participation {
	n := len(r.Participations)
	return r.Participations[(i+1)%n]
}

// Prev returns participation (i-1) mod n — the order this participation
// sells to.
func (r *Ring) Prev(i int) *Participation {
	n := len(r.Participations)
	return r.Participations[(i-1+n)%n]
}

// Size returns the number of participations in the ring.
func (r *Ring) Size() int {
	return len(r.Participations)
}
