// Package ring implements the fixed-point fill computation, fee/burn/rebate
// calculation, transfer emission, and per-ring invariant checks the spec
// assigns to Ring. Every exported function takes the *types.Ring it
// operates on plus whatever collaborators it needs, mirroring the
// teacher lineage's free-function style for transaction application logic
// (applyGuts-shaped steps) rather than a Ring method set with hidden
// state.
package ring

import (
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// New builds a fresh, valid Ring over the given participations in order.
func New(hash []byte, participations []*types.Participation) *types.Ring {
	return &types.Ring{
		Participations: participations,
		Hash:           hash,
		Valid:          true,
		FeeBalances:    types.NewBalanceAccumulator(),
	}
}

// CheckRingSize validates 2 <= n <= 8, invalidating the ring otherwise.
func CheckRingSize(r *types.Ring) result.Code {
	n := r.Size()
	if n < types.MinRingSize || n > types.MaxRingSize {
		r.Valid = false
		return result.TecRingSizeInvalid
	}
	return result.OK
}

// CheckOrdersValid invalidates the ring if any participating order is
// itself invalid (e.g. failed validateInfo, broker unregistered,
// cancelled, or — post AllOrNone-resolution — AON-unfilled).
func CheckOrdersValid(r *types.Ring) result.Code {
	for _, p := range r.Participations {
		if !p.Order.Valid {
			r.Valid = false
			return result.TecOrderInvalid
		}
	}
	return result.OK
}

// CheckForSubRings invalidates the ring if two participations share the
// same tokenS (a sub-ring within the ring).
func CheckForSubRings(r *types.Ring) result.Code {
	seen := make(map[types.Address]bool, r.Size())
	for _, p := range r.Participations {
		if seen[p.Order.TokenS] {
			r.Valid = false
			return result.TecSubRing
		}
		seen[p.Order.TokenS] = true
	}
	return result.OK
}

// CheckTokenChain invalidates the ring unless, for every i, order[i].tokenS
// equals order[i-1].tokenB with matching token types — the cyclic token
// chain invariant.
func CheckTokenChain(r *types.Ring) result.Code {
	n := r.Size()
	for i := 0; i < n; i++ {
		o := r.Participations[i].Order
		prevO := r.Prev(i).Order
		if o.TokenS != prevO.TokenB || o.TokenTypeS != prevO.TokenTypeB {
			r.Valid = false
			return result.TecTokenChainMismatch
		}
	}
	return result.OK
}
