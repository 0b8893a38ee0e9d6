// Package ordervalidator implements the per-order validity, hashing,
// broker resolution, and spendable-query logic the spec assigns to
// OrderValidator. It is a stateless helper: every method takes the
// OrderInfo and ChainView it operates on rather than holding state of its
// own.
package ordervalidator

import (
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// Validator bundles the Hasher/SignatureVerifier collaborators the order
// validation steps need, so callers don't have to thread them through
// every call individually.
type Validator struct {
	Hasher   types.Hasher
	Verifier types.SignatureVerifier
}

func New(h types.Hasher, v types.SignatureVerifier) *Validator {
	return &Validator{Hasher: h, Verifier: v}
}

// ValidateInfo sets order.Valid=false if any structural invariant fails:
// expired validity window, zero amounts, missing fee token/owner.
func (vd *Validator) ValidateInfo(o *types.OrderInfo, now int64) result.Code {
	switch {
	case o.ValidSince > now:
		o.Valid = false
		return result.TemExpired
	case o.ValidUntil != 0 && o.ValidUntil <= now:
		o.Valid = false
		return result.TemExpired
	case o.AmountS.Sign() == 0:
		o.Valid = false
		return result.TemZeroAmount
	case o.AmountB.Sign() == 0:
		o.Valid = false
		return result.TemZeroAmount
	case o.FeeToken.IsZero():
		o.Valid = false
		return result.TemMissingFeeToken
	case o.Owner.IsZero():
		o.Valid = false
		return result.TemMissingOwner
	}
	o.Valid = true
	return result.OK
}

// CheckP2P marks the order P2P iff either fee-percentage field is
// positive, the derivation the spec mandates.
func (vd *Validator) CheckP2P(o *types.OrderInfo) {
	o.P2P = o.TokenSFeePercentage > 0 || o.TokenBFeePercentage > 0
}

// ComputeHash delegates to the injected Hasher and caches the result on
// the order.
func (vd *Validator) ComputeHash(o *types.OrderInfo) []byte {
	o.Hash = vd.Hasher.HashOrder(o)
	return o.Hash
}

// ResolveBroker queries the broker registry when a broker is present,
// invalidating the order if it isn't registered.
func (vd *Validator) ResolveBroker(o *types.OrderInfo, view types.BrokerRegistry) (result.Code, error) {
	if o.Broker.IsZero() {
		return result.OK, nil
	}
	interceptor, registered, err := view.Get(o.Broker, o.Owner)
	if err != nil {
		return result.OK, err
	}
	if !registered {
		o.Valid = false
		return result.TecBrokerUnregistered, nil
	}
	o.BrokerInterceptor = interceptor
	return result.OK, nil
}

// CheckBrokerSignature verifies a dual-authorization-style broker
// signature over the order; failure invalidates the order.
func (vd *Validator) CheckBrokerSignature(o *types.OrderInfo, sig []byte) result.Code {
	if o.Broker.IsZero() || len(sig) == 0 {
		return result.OK
	}
	if !vd.Verifier.VerifyOrderSignature(o, sig) {
		o.Valid = false
		return result.TemBadSignature
	}
	return result.OK
}

// CheckDualAuthSignature verifies the dual-auth signature; failure
// invalidates the order.
func (vd *Validator) CheckDualAuthSignature(o *types.OrderInfo, sig []byte) result.Code {
	if len(sig) == 0 {
		return result.OK
	}
	if !vd.Verifier.VerifyDualAuthSignature(o, sig) {
		o.Valid = false
		return result.TemBadSignature
	}
	return result.OK
}

// CheckMinerSignature verifies the mining-record signature. Unlike the
// order/broker/dual-auth checks, a failure here is fatal to the whole
// batch (§7.3) — callers of this helper at the engine level are
// responsible for surfacing that as a fatal error rather than an
// invalidation code.
func (vd *Validator) CheckMinerSignature(miningHash []byte, miner types.Address, sig []byte) bool {
	return vd.Verifier.VerifyMinerSignature(miningHash, miner, sig)
}

// GetTokenSpendable returns the live spendable for (token, owner) via the
// ERC20 SpendableBalance query, lazily caching into spend on first use and
// reusing thereafter. When brokerSpend is non-nil the result is
// min(spend, brokerSpend); brokerSpend is seeded from the same
// SpendableBalance(owner, token) query, and no broker interceptor is
// consulted.
func (vd *Validator) GetTokenSpendable(view types.ERC20, spend *types.Spendable, brokerSpend *types.Spendable, token, owner types.Address) (*big.Int, error) {
	if !spend.Initialized {
		bal, err := view.SpendableBalance(owner, token)
		if err != nil {
			return nil, err
		}
		*spend = *types.NewSpendable(bal)
	}
	live := spend.Live()
	if brokerSpend != nil {
		if !brokerSpend.Initialized {
			bal, err := view.SpendableBalance(owner, token)
			if err != nil {
				return nil, err
			}
			*brokerSpend = *types.NewSpendable(bal)
		}
		live = bigMin(live, brokerSpend.Live())
	}
	return live, nil
}

// GetSpendableS returns the order's live spendable for tokenS.
func (vd *Validator) GetSpendableS(view types.ERC20, o *types.OrderInfo) (*big.Int, error) {
	return vd.GetTokenSpendable(view, o.TokenSpendableS, o.BrokerSpendableS, o.TokenS, o.Owner)
}

// GetSpendableFee returns the order's live spendable for feeToken.
func (vd *Validator) GetSpendableFee(view types.ERC20, o *types.OrderInfo) (*big.Int, error) {
	return vd.GetTokenSpendable(view, o.TokenSpendableFee, o.BrokerSpendableFee, o.FeeToken, o.Owner)
}

// ReserveAmountS adds amount to tokenS's (and the shared broker
// spendable's, when present) reserved counter.
func (vd *Validator) ReserveAmountS(o *types.OrderInfo, amount *big.Int) {
	o.TokenSpendableS.Reserve(amount)
	if o.BrokerSpendableS != nil {
		o.BrokerSpendableS.Reserve(amount)
	}
}

// ReserveAmountFee adds amount to feeToken's (and the shared broker
// spendable's, when present) reserved counter.
func (vd *Validator) ReserveAmountFee(o *types.OrderInfo, amount *big.Int) {
	o.TokenSpendableFee.Reserve(amount)
	if o.BrokerSpendableFee != nil {
		o.BrokerSpendableFee.Reserve(amount)
	}
}

// ResetReservations clears tokenS's and feeToken's reserved counters
// (and their shared broker counterparts). Ring computation does not
// persist reservations across rings (§4.3 step 5).
func (vd *Validator) ResetReservations(o *types.OrderInfo) {
	o.TokenSpendableS.ResetReservation()
	o.TokenSpendableFee.ResetReservation()
	if o.BrokerSpendableS != nil {
		o.BrokerSpendableS.ResetReservation()
	}
	if o.BrokerSpendableFee != nil {
		o.BrokerSpendableFee.ResetReservation()
	}
}

// ValidateAllOrNone invalidates o if it is allOrNone and was not filled
// to exactly amountS after settlement planning.
func (vd *Validator) ValidateAllOrNone(o *types.OrderInfo) result.Code {
	if !o.AllOrNone {
		return result.OK
	}
	if o.FilledAmountS.Cmp(o.AmountS) < 0 {
		o.Valid = false
		return result.TecAONUnfilled
	}
	return result.OK
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
