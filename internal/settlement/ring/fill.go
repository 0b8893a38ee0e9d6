package ring

import (
	"fmt"
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/bigmath"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ordervalidator"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// CalculateFillAmountAndFee runs the full five-step fill computation: the
// initial per-participation max fill, the two-sweep resize loop that
// propagates shrinkage around the cycle, reserving tokenS budgets,
// per-pair fee/margin calculation, and finally releasing those
// reservations (a ring's fill computation must not leave reservations
// behind for the next ring). A non-OK result.Code means the ring itself
// was invalidated (r.Valid is set to false); a non-nil error means a
// ChainView read failed and must propagate as fatal.
func CalculateFillAmountAndFee(r *types.Ring, vd *ordervalidator.Validator, view types.ChainView, feeBase int64) (result.Code, error) {
	if err := setMaxFillAmounts(r, vd, view); err != nil {
		return result.OK, err
	}

	resizeLoop(r, feeBase)

	for _, p := range r.Participations {
		vd.ReserveAmountS(p.Order, p.FillAmountS)
	}

	code, err := calculateFees(r, vd, view, feeBase)
	if err != nil {
		return result.OK, err
	}
	if code != result.OK {
		r.Valid = false
	}

	for _, p := range r.Participations {
		vd.ResetReservations(p.Order)
	}

	return code, nil
}

// setMaxFillAmounts is step 1: the unconstrained-by-ring-neighbors max
// fill for each participation, bounded by remaining order amount and
// spendable budget, with fee affordability folded in for non-P2P orders.
func setMaxFillAmounts(r *types.Ring, vd *ordervalidator.Validator, view types.ChainView) error {
	for _, p := range r.Participations {
		o := p.Order

		spendableS, err := vd.GetSpendableS(view, o)
		if err != nil {
			return fmt.Errorf("settlement/ring: spendableS for order %x: %w", o.Hash, err)
		}
		spendableFee, err := vd.GetSpendableFee(view, o)
		if err != nil {
			return fmt.Errorf("settlement/ring: spendableFee for order %x: %w", o.Hash, err)
		}
		p.RingSpendableS = spendableS
		p.RingSpendableFee = spendableFee

		remainingS := o.RemainingAmountS()
		fillAmountS := bigmath.Min(spendableS, remainingS)

		if !o.P2P && !o.FeeShortcutApplies() {
			feeAmount := bigmath.MulDiv(o.FeeAmount, fillAmountS, o.AmountS)

			if o.FeeToken == o.TokenS {
				total := bigmath.Add(o.AmountS, o.FeeAmount)
				if bigmath.Add(fillAmountS, feeAmount).Cmp(spendableS) > 0 {
					fillAmountS = bigmath.MulDiv(spendableS, o.AmountS, total)
				}
			} else if feeAmount.Cmp(spendableFee) > 0 {
				feeAmount = new(big.Int).Set(spendableFee)
				if o.FeeAmount.Sign() != 0 {
					fillAmountS = bigmath.MulDiv(feeAmount, o.AmountS, o.FeeAmount)
				}
			}
		}

		p.FillAmountS = fillAmountS
		p.FillAmountB = bigmath.MulDiv(fillAmountS, o.AmountB, o.AmountS)
	}
	return nil
}

// postFeeFillAmountS is the net amount p actually delivers once its own
// tokenS-side P2P fee is cut — the figure p's buyer (Prev(i)) can rely on
// receiving.
func postFeeFillAmountS(p *types.Participation) *big.Int {
	return bigmath.MulDivRat(p.FillAmountS, types.FeePercentageBase-p.Order.TokenSFeePercentage, types.FeePercentageBase)
}

// resizeLoop is step 2: two descending sweeps that shrink a buyer's
// fillAmountB down to what its seller can actually deliver, propagating
// shrinkage around the cycle. The second sweep only needs to run from the
// smallest index touched by the first.
func resizeLoop(r *types.Ring, feeBase int64) {
	n := r.Size()
	smallest := -1
	for i := n - 1; i >= 0; i-- {
		if shrinkIfNeeded(r, i) {
			smallest = i
		}
	}
	if smallest < 0 {
		return
	}
	for i := n - 1; i >= smallest; i-- {
		shrinkIfNeeded(r, i)
	}
}

// shrinkIfNeeded compares participation i's net delivery against its
// buyer's (Prev(i)'s) current fillAmountB, shrinking the buyer to match
// when it wants more than i can deliver. Returns whether a shrink occurred.
func shrinkIfNeeded(r *types.Ring, i int) bool {
	p := r.Participations[i]
	buyer := r.Prev(i)
	postFee := postFeeFillAmountS(p)
	if buyer.FillAmountB.Cmp(postFee) <= 0 {
		return false
	}
	buyer.FillAmountB = new(big.Int).Set(postFee)
	buyer.FillAmountS = bigmath.MulDiv(buyer.FillAmountB, buyer.Order.AmountS, buyer.Order.AmountB)
	return true
}

// calculateFees is step 4: per-pair fee computation, the margin check,
// waive accumulation, and the ERC1400 canSend probe. It returns the first
// invalidating result.Code encountered, or result.OK if every pair is
// feasible.
func calculateFees(r *types.Ring, vd *ordervalidator.Validator, view types.ChainView, feeBase int64) (result.Code, error) {
	n := r.Size()
	for i := 0; i < n; i++ {
		p := r.Participations[i]
		o := p.Order
		buyer := r.Prev(i)

		if o.P2P {
			p.FeeAmount = bigmath.Zero()
			p.FeeAmountS = bigmath.MulDivRat(p.FillAmountS, o.TokenSFeePercentage, feeBase)
			p.FeeAmountB = bigmath.MulDivRat(p.FillAmountB, o.TokenBFeePercentage, feeBase)
		} else {
			p.FeeAmountS = bigmath.Zero()
			p.FeeAmountB = bigmath.Zero()
			p.FeeAmount = bigmath.MulDiv(o.FeeAmount, p.FillAmountS, o.AmountS)

			if o.FeeToken == o.TokenB && o.Owner == o.TokenRecipient && p.FillAmountB.Cmp(p.FeeAmount) >= 0 {
				p.FeeAmountB = p.FeeAmount
				p.FeeAmount = bigmath.Zero()
			} else if p.FeeAmount.Cmp(p.RingSpendableFee) > 0 {
				return result.TecInfeasibleFee, nil
			} else if p.FeeAmount.Sign() > 0 {
				vd.ReserveAmountFee(o, p.FeeAmount)
			}
		}

		netSell := bigmath.Sub(p.FillAmountS, p.FeeAmountS)
		if netSell.Cmp(buyer.FillAmountB) < 0 {
			return result.TecInfeasibleResize, nil
		}
		p.SplitS = bigmath.Sub(netSell, buyer.FillAmountB)
		p.FillAmountS = bigmath.Sub(p.FillAmountS, p.SplitS)

		if o.WaiveFeePercentage < 0 {
			r.MinerFeesToOrdersPercentage += -o.WaiveFeePercentage
		}

		if o.TokenTypeS == types.ERC1400 {
			status, destTranche, err := view.CanSend(o.TokenS, o.Owner, buyer.Order.TokenRecipient, o.TrancheS, p.FillAmountS, o.TransferDataS)
			if err != nil {
				return result.OK, fmt.Errorf("settlement/ring: canSend probe for order %x: %w", o.Hash, err)
			}
			if !status.Allowed() || destTranche != buyer.Order.TrancheB {
				return result.TecCanSendRefused, nil
			}
		}
	}

	if r.MinerFeesToOrdersPercentage > feeBase {
		return result.TecWaiveOverflow, nil
	}
	return result.OK, nil
}
