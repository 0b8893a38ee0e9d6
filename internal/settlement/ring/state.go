package ring

import (
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// AdjustOrderStates is §4.4: commits a ring's fill computation into each
// order's persistent filledAmountS and spendable balances. Called once per
// valid ring, before AllOrNoneResolver runs.
func AdjustOrderStates(r *types.Ring) {
	for _, p := range r.Participations {
		applyAdjustment(p, 1)
	}
}

// RevertOrderStats is the exact inverse of AdjustOrderStates, used when
// AllOrNoneResolver invalidates a ring that had already been committed.
func RevertOrderStats(r *types.Ring) {
	for _, p := range r.Participations {
		applyAdjustment(p, -1)
	}
}

// applyAdjustment commits (sign=1) or reverts (sign=-1) one
// participation's effect on its order's persistent state.
func applyAdjustment(p *types.Participation, sign int64) {
	o := p.Order
	s := big.NewInt(sign)

	sold := new(big.Int).Add(p.FillAmountS, p.SplitS)
	delta := new(big.Int).Mul(sold, s)
	o.FilledAmountS.Add(o.FilledAmountS, delta)

	spendS := new(big.Int).Mul(sold, s)
	o.TokenSpendableS.Amount.Sub(o.TokenSpendableS.Amount, spendS)
	if o.BrokerSpendableS != nil {
		o.BrokerSpendableS.Amount.Sub(o.BrokerSpendableS.Amount, spendS)
	}

	feeSpend := new(big.Int).Mul(p.FeeAmount, s)
	o.TokenSpendableFee.Amount.Sub(o.TokenSpendableFee.Amount, feeSpend)
	if o.BrokerSpendableFee != nil {
		o.BrokerSpendableFee.Amount.Sub(o.BrokerSpendableFee.Amount, feeSpend)
	}
}
