// Package result defines the closed set of invalidation codes the
// settlement core attaches to orders and rings. It plays the role the
// teacher lineage's tx.Result enum plays for transaction outcomes: a
// small, named set of reasons rather than bare error strings, so hosts
// can branch on the code instead of parsing messages.
package result

// Code is an order- or ring-invalidation reason. The zero value OK means
// "no problem found".
type Code int

const (
	OK Code = iota

	// Order-invalidation codes (§7.1): non-fatal, localized to one order.
	TemExpired            // validUntil <= now, or validSince > now
	TemZeroAmount          // amountS or amountB is zero
	TemMissingFeeToken     // feeToken address is absent
	TemMissingOwner        // owner address is absent
	TemBadSignature        // dual-auth/broker signature failed
	TecBrokerUnregistered  // broker present but not registered in BrokerRegistry
	TecCancelled           // TradeDelegate reported the cancellation sentinel
	TecAONUnfilled         // allOrNone order not fully filled after settlement planning

	// Ring-invalidation codes (§7.2): non-fatal, localized to one ring.
	TecSubRing              // two orders in the ring share tokenS
	TecTokenChainMismatch    // order[i].tokenS != order[i-1].tokenB (or tokenType mismatch)
	TecRingSizeInvalid       // participations outside [2,8]
	TecInfeasibleResize      // resize-loop could not reach a feasible fixed point
	TecInfeasibleFee         // self-trade fee exceeds spendable fee budget
	TecWaiveOverflow         // minerFeesToOrdersPercentage > feePercentageBase
	TecCanSendRefused        // ERC1400 canSend probe refused the transfer
	TecOrderInvalid          // a participating order is itself invalid
)

// String renders a Code for logs and error messages.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case TemExpired:
		return "TemExpired"
	case TemZeroAmount:
		return "TemZeroAmount"
	case TemMissingFeeToken:
		return "TemMissingFeeToken"
	case TemMissingOwner:
		return "TemMissingOwner"
	case TemBadSignature:
		return "TemBadSignature"
	case TecBrokerUnregistered:
		return "TecBrokerUnregistered"
	case TecCancelled:
		return "TecCancelled"
	case TecAONUnfilled:
		return "TecAONUnfilled"
	case TecSubRing:
		return "TecSubRing"
	case TecTokenChainMismatch:
		return "TecTokenChainMismatch"
	case TecRingSizeInvalid:
		return "TecRingSizeInvalid"
	case TecInfeasibleResize:
		return "TecInfeasibleResize"
	case TecInfeasibleFee:
		return "TecInfeasibleFee"
	case TecWaiveOverflow:
		return "TecWaiveOverflow"
	case TecCanSendRefused:
		return "TecCanSendRefused"
	case TecOrderInvalid:
		return "TecOrderInvalid"
	default:
		return "TecUnknown"
	}
}

// IsOrderCode reports whether c localizes to a single order rather than a
// whole ring.
func (c Code) IsOrderCode() bool {
	switch c {
	case TemExpired, TemZeroAmount, TemMissingFeeToken, TemMissingOwner,
		TemBadSignature, TecBrokerUnregistered, TecCancelled, TecAONUnfilled:
		return true
	default:
		return false
	}
}
