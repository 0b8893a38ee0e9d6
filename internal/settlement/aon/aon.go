// Package aon implements AllOrNoneResolver: the cross-ring fixed-point
// iteration that invalidates any ring whose allOrNone order did not end up
// completely filled once every ring in the batch has run its fill
// computation.
package aon

import (
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ordervalidator"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ring"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// Resolve iterates orders/rings to a fixed point: each round invalidates
// any still-valid allOrNone order that is not fully filled, then
// re-checks every ring's order validity, reverting a ring's committed
// state the moment it flips from valid to invalid. Each round that finds
// something to invalidate strictly shrinks the set of valid orders, so
// the loop converges in at most len(orders) rounds (§8 invariant 14).
func Resolve(vd *ordervalidator.Validator, orders []*types.OrderInfo, rings []*types.Ring) {
	maxRounds := len(orders) + 1
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, o := range orders {
			if !o.Valid {
				continue
			}
			if vd.ValidateAllOrNone(o) != result.OK {
				changed = true
			}
		}
		if !changed {
			return
		}
		for _, r := range rings {
			if !r.Valid {
				continue
			}
			ring.CheckOrdersValid(r)
			if !r.Valid {
				ring.RevertOrderStats(r)
			}
		}
	}
}
