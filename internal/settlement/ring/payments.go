package ring

import (
	"fmt"
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/bigmath"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// PaymentParams bundles the batch-wide addresses and constants DoPayments
// and payFeesAndBurn need but that are not themselves part of the ring or
// order data model.
type PaymentParams struct {
	// FeeRecipient is the mining record's feeRecipient: both the
	// destination of the margin transfer and the credited address for a
	// miner's retained fee share.
	FeeRecipient types.Address
	// FeeHolder is the contract address every non-margin fee transfer
	// targets; feeBalances tracks who, within that holder, owns what.
	FeeHolder types.Address
	FeeBase   int64
	// RebateRateOutOfBase is the rebate rate applied in payFeesAndBurn,
	// out of FeeBase. Always 0 in production (§9 open question); kept as
	// a parameter so a nonzero rate can be configured.
	RebateRateOutOfBase int64
}

// DoPayments is §4.5: emits every participation's token transfers and
// runs payFeesAndBurn over each of its three fee legs. It mutates each
// participation's RebateFee/RebateS/RebateB and ring.FeeBalances, and
// returns the flat list of transfers this ring produced (not yet merged
// across rings — that happens in the engine).
func DoPayments(r *types.Ring, view types.ChainView, params PaymentParams) ([]types.Transfer, error) {
	n := r.Size()

	for _, p := range r.Participations {
		o := p.Order
		var err error
		p.RebateFee, err = payFeesAndBurn(r, p, p.FeeAmount, o.FeeToken, view, params)
		if err != nil {
			return nil, err
		}
		p.RebateS, err = payFeesAndBurn(r, p, p.FeeAmountS, o.TokenS, view, params)
		if err != nil {
			return nil, err
		}
		p.RebateB, err = payFeesAndBurn(r, p, p.FeeAmountB, o.TokenB, view, params)
		if err != nil {
			return nil, err
		}
	}

	var transfers []types.Transfer
	for i := 0; i < n; i++ {
		p := r.Participations[i]
		o := p.Order
		buyer := r.Prev(i)
		bo := buyer.Order

		crossFeeB := bigmath.Sub(buyer.FeeAmountB, buyer.RebateB)

		amount1 := bigmath.Sub(bigmath.Sub(p.FillAmountS, p.FeeAmountS), crossFeeB)
		if amount1.Sign() > 0 && o.Owner != bo.TokenRecipient {
			toTranche, err := resolveTranche(view, o.TokenTypeS, o.TokenS, o.Owner, bo.TokenRecipient, o.TrancheS, amount1, o.TransferDataS)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, types.Transfer{
				Token: o.TokenS, From: o.Owner, To: bo.TokenRecipient, Amount: amount1,
				TokenType: o.TokenTypeS, FromTranche: o.TrancheS, ToTranche: toTranche,
				Data: o.TransferDataS,
			})
		}

		foldFeeToken := o.TokenS == o.FeeToken
		amount2 := bigmath.Add(bigmath.Sub(p.FeeAmountS, p.RebateS), crossFeeB)
		if foldFeeToken {
			amount2 = bigmath.Add(amount2, bigmath.Sub(p.FeeAmount, p.RebateFee))
		}
		if amount2.Sign() > 0 && o.Owner != params.FeeHolder {
			toTranche, err := resolveTranche(view, o.TokenTypeS, o.TokenS, o.Owner, params.FeeHolder, o.TrancheS, amount2, nil)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, types.Transfer{
				Token: o.TokenS, From: o.Owner, To: params.FeeHolder, Amount: amount2,
				TokenType: o.TokenTypeS, FromTranche: o.TrancheS, ToTranche: toTranche,
			})
		}

		if !foldFeeToken {
			amount3 := bigmath.Sub(p.FeeAmount, p.RebateFee)
			if amount3.Sign() > 0 && o.Owner != params.FeeHolder {
				toTranche, err := resolveTranche(view, o.TokenTypeFee, o.FeeToken, o.Owner, params.FeeHolder, o.TrancheFee, amount3, nil)
				if err != nil {
					return nil, err
				}
				transfers = append(transfers, types.Transfer{
					Token: o.FeeToken, From: o.Owner, To: params.FeeHolder, Amount: amount3,
					TokenType: o.TokenTypeFee, FromTranche: o.TrancheFee, ToTranche: toTranche,
				})
			}
		}

		margin := new(big.Int).Set(p.SplitS)
		if o.TokenTypeS == types.ERC1400 {
			margin = bigmath.Zero()
		}
		if margin.Sign() > 0 && o.Owner != params.FeeRecipient {
			transfers = append(transfers, types.Transfer{
				Token: o.TokenS, From: o.Owner, To: params.FeeRecipient, Amount: margin,
				TokenType: o.TokenTypeS, FromTranche: o.TrancheS, ToTranche: types.ZeroAddress,
			})
		}
	}

	return transfers, nil
}

// resolveTranche probes ERC1400's canSend at payment time (authoritative
// over the fill-time probe, §9) and returns the destination tranche. For
// ERC20 it is a no-op returning the zero tranche.
func resolveTranche(view types.ERC1400, tokenType types.TokenType, token, from, to, fromTranche types.Address, amount *big.Int, data []byte) (types.Address, error) {
	if tokenType != types.ERC1400 {
		return types.ZeroAddress, nil
	}
	status, dest, err := view.CanSend(token, from, to, fromTranche, amount, data)
	if err != nil {
		return types.Address{}, fmt.Errorf("settlement/ring: canSend probe at payment time: %w", err)
	}
	if !status.Allowed() {
		return types.Address{}, fmt.Errorf("settlement/ring: token %s refused transfer from %s: %w", token, from, types.ErrCanSendRefused)
	}
	return dest, nil
}

// payFeesAndBurn is §4.5's fee/burn/rebate distribution, applied
// independently to one of a participation's three fee legs (feeAmount in
// feeToken, feeAmountS in tokenS, feeAmountB in tokenB). It credits
// ring.FeeBalances and returns the portion of amount that is rebated back
// to the order rather than collected by anyone.
func payFeesAndBurn(r *types.Ring, p *types.Participation, amount *big.Int, token types.Address, view types.BurnRateTable, params PaymentParams) (*big.Int, error) {
	if amount.Sign() == 0 {
		return bigmath.Zero(), nil
	}
	o := p.Order
	hasWallet := !o.WalletAddr.IsZero()

	if o.P2P && !hasWallet {
		return new(big.Int).Set(amount), nil
	}

	var walletSplit int64
	if o.P2P {
		walletSplit = 100
	} else if hasWallet {
		walletSplit = o.WalletSplitPercentage
	}

	walletFee := bigmath.MulDivRat(amount, walletSplit, 100)
	minerFee := bigmath.Sub(amount, walletFee)

	switch {
	case o.WaiveFeePercentage > 0:
		minerFee = bigmath.MulDivRat(minerFee, params.FeeBase-o.WaiveFeePercentage, params.FeeBase)
	case o.WaiveFeePercentage < 0:
		minerFee = bigmath.Zero()
	}

	burnRateToken, err := view.GetBurnRate(token)
	if err != nil {
		return nil, fmt.Errorf("settlement/ring: burn rate for token %s: %w", token, err)
	}
	var burnRate int64
	if o.P2P {
		burnRate = int64(burnRateToken >> 16)
	} else {
		burnRate = int64(burnRateToken & 0xFFFF)
	}
	rebateRate := params.RebateRateOutOfBase

	minerBurn := bigmath.MulDivRat(minerFee, burnRate, params.FeeBase)
	minerRebate := bigmath.MulDivRat(minerFee, rebateRate, params.FeeBase)
	minerFee = bigmath.Sub(minerFee, bigmath.Add(minerBurn, minerRebate))

	walletBurn := bigmath.MulDivRat(walletFee, burnRate, params.FeeBase)
	walletRebate := bigmath.MulDivRat(walletFee, rebateRate, params.FeeBase)
	walletFee = bigmath.Sub(walletFee, bigmath.Add(walletBurn, walletRebate))

	credited := bigmath.Zero()
	minerRetained := minerFee

	if r.MinerFeesToOrdersPercentage > 0 && minerFee.Sign() > 0 {
		minerRetained = bigmath.MulDivRat(minerFee, params.FeeBase-r.MinerFeesToOrdersPercentage, params.FeeBase)
		for _, other := range r.Participations {
			if other == p || other.Order.WaiveFeePercentage >= 0 {
				continue
			}
			share := bigmath.MulDivRat(minerFee, -other.Order.WaiveFeePercentage, params.FeeBase)
			if share.Sign() == 0 {
				continue
			}
			r.FeeBalances.Add(other.Order.Owner, token, types.ZeroAddress, share)
			credited = bigmath.Add(credited, share)
		}
	}

	if walletFee.Sign() > 0 && hasWallet {
		r.FeeBalances.Add(o.WalletAddr, token, types.ZeroAddress, walletFee)
		credited = bigmath.Add(credited, walletFee)
	}
	if minerRetained.Sign() > 0 {
		r.FeeBalances.Add(params.FeeRecipient, token, types.ZeroAddress, minerRetained)
		credited = bigmath.Add(credited, minerRetained)
	}
	totalBurn := bigmath.Add(minerBurn, walletBurn)
	if totalBurn.Sign() > 0 {
		r.FeeBalances.Add(types.ZeroAddress, token, types.ZeroAddress, totalBurn)
		credited = bigmath.Add(credited, totalBurn)
	}

	rebate := bigmath.Sub(amount, credited)
	if rebate.Sign() < 0 {
		rebate = bigmath.Zero()
	}
	return rebate, nil
}
