// Package engine implements SettlementEngine: the batch driver that
// validates orders, constructs rings, runs the AllOrNone fixed point,
// performs payments, and aggregates a Report with its global invariant
// checks.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/aon"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/bigmath"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ordervalidator"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ring"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// Engine drives one or more Simulate calls. The only mutable state it
// carries across calls is ringIndex, a monotonic counter used to label
// RingMined events (§5) — simulations themselves never run concurrently
// with each other, so no locking is needed around it.
type Engine struct {
	Hasher   types.Hasher
	Verifier types.SignatureVerifier

	FeeBase             int64
	RebateRateOutOfBase int64
	FeeHolder           types.Address

	ringIndex int64
}

// New builds an Engine over the given collaborators and constants.
func New(hasher types.Hasher, verifier types.SignatureVerifier, feeBase, rebateRateOutOfBase int64, feeHolder types.Address) *Engine {
	return &Engine{
		Hasher:              hasher,
		Verifier:            verifier,
		FeeBase:             feeBase,
		RebateRateOutOfBase: rebateRateOutOfBase,
		FeeHolder:           feeHolder,
	}
}

// Simulate runs one full settlement batch against view and returns the
// resulting Report. Order- and ring-level problems are absorbed into the
// report (invalid orders/rings, no transfers for them); a non-nil error
// means a fatal condition (§7.3) aborted the whole batch.
func (e *Engine) Simulate(ctx context.Context, input Input, view types.ChainView, now int64) (*Report, error) {
	vd := ordervalidator.New(e.Hasher, e.Verifier)

	if err := preflight(ctx, input.Orders, vd, view, now); err != nil {
		return nil, err
	}
	if err := applyFilledCancelled(input.Orders, view); err != nil {
		return nil, err
	}
	dedupeBrokerSpendables(input.Orders)
	initSpendables(input.Orders)

	filledAmountsBefore := snapshotFilled(input.Orders)

	rings, err := buildRings(input)
	if err != nil {
		return nil, err
	}

	if err := e.checkMinerSignature(vd, rings, input); err != nil {
		return nil, err
	}

	invalid := make(map[string]bool)
	for _, r := range rings {
		if code := checkRingPreconditions(r); code != result.OK {
			markInvalid(r, invalid)
			continue
		}
		code, err := ring.CalculateFillAmountAndFee(r, vd, view, e.FeeBase)
		if err != nil {
			return nil, err
		}
		if code != result.OK {
			markInvalid(r, invalid)
			continue
		}
		if err := checkRateRespect(r); err != nil {
			return nil, err
		}
		ring.AdjustOrderStates(r)
	}

	aon.Resolve(vd, input.Orders, rings)
	for _, r := range rings {
		if !r.Valid {
			markInvalid(r, invalid)
		}
	}

	filledAmountsAfter := snapshotFilled(input.Orders)

	params := ring.PaymentParams{
		FeeRecipient:        input.FeeRecipient,
		FeeHolder:           e.FeeHolder,
		FeeBase:             e.FeeBase,
		RebateRateOutOfBase: e.RebateRateOutOfBase,
	}

	var allTransfers []types.Transfer
	var ringMined []RingMined
	for _, r := range rings {
		if !r.Valid {
			continue
		}
		transfers, err := ring.DoPayments(r, view, params)
		if err != nil {
			return nil, err
		}
		allTransfers = append(allTransfers, transfers...)
		ringMined = append(ringMined, e.buildRingMined(r, input.FeeRecipient))
	}

	var invalidEvents []InvalidRingEvent
	for h := range invalid {
		invalidEvents = append(invalidEvents, InvalidRingEvent{RingHash: h})
	}

	merged := mergeTransfers(allTransfers)

	balancesBefore, err := snapshotBalances(view, merged, rings, input.FeeRecipient)
	if err != nil {
		return nil, err
	}
	balancesAfter := applyTransfers(balancesBefore, merged)

	feeDeltas := mergeFeeDeltas(rings)
	feeBalancesBefore, err := snapshotFeeBalances(view, feeDeltas)
	if err != nil {
		return nil, err
	}
	feeBalancesAfter := feeBalancesBefore.Copy()
	for _, entry := range feeDeltas.Enumerate() {
		feeBalancesAfter.Add(entry.Owner, entry.Token, entry.Tranche, entry.Amount)
	}

	if err := validateRings(input.Orders, merged, balancesAfter); err != nil {
		return nil, err
	}

	return &Report{
		RingMinedEvents:     ringMined,
		InvalidRingEvents:   invalidEvents,
		TransferItems:       merged,
		FeeBalancesBefore:   feeBalancesBefore,
		FeeBalancesAfter:    feeBalancesAfter,
		FilledAmountsBefore: filledAmountsBefore,
		FilledAmountsAfter:  filledAmountsAfter,
		BalancesBefore:      balancesBefore,
		BalancesAfter:       balancesAfter,
	}, nil
}

// preflight runs validateInfo/checkP2P/computeHash/resolveBroker for
// every order. Per-order work touches only that order's own fields, so
// it fans out across an errgroup writing into the (already index-stable)
// orders slice rather than appending — safe without further locking.
func preflight(ctx context.Context, orders []*types.OrderInfo, vd *ordervalidator.Validator, view types.ChainView, now int64) error {
	g, _ := errgroup.WithContext(ctx)
	for idx := range orders {
		i := idx
		g.Go(func() error {
			o := orders[i]
			vd.ValidateInfo(o, now)
			vd.CheckP2P(o)
			vd.ComputeHash(o)
			if !o.Valid {
				return nil
			}
			if _, err := vd.ResolveBroker(o, view); err != nil {
				return fmt.Errorf("settlement/engine: resolve broker for order %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func applyFilledCancelled(orders []*types.OrderInfo, view types.TradeDelegate) error {
	hashes := make([][]byte, len(orders))
	for i, o := range orders {
		hashes[i] = o.Hash
	}
	filled, err := view.BatchGetFilledAndCheckCancelled(hashes)
	if err != nil {
		return fmt.Errorf("settlement/engine: batch filled/cancelled query: %w", err)
	}
	if len(filled) != len(orders) {
		return fmt.Errorf("settlement/engine: batch filled/cancelled returned %d results for %d orders: %w", len(filled), len(orders), types.ErrCorruptInput)
	}
	for i, o := range orders {
		if filled[i].Cmp(types.FilledCancelledSentinel) == 0 {
			o.Valid = false
			continue
		}
		o.FilledAmountS = new(big.Int).Set(filled[i])
	}
	return nil
}

type brokerKey struct {
	Broker, Owner, Token types.Address
}

// dedupeBrokerSpendables assigns one shared *Spendable per distinct
// (broker, owner, token) triple across the whole batch so reservations on
// one order are visible to every other order that reuses the same path
// (§9 "Spendable aliasing").
func dedupeBrokerSpendables(orders []*types.OrderInfo) {
	cache := make(map[brokerKey]*types.Spendable)
	shared := func(broker, owner, token types.Address) *types.Spendable {
		k := brokerKey{broker, owner, token}
		if sp, ok := cache[k]; ok {
			return sp
		}
		sp := &types.Spendable{}
		cache[k] = sp
		return sp
	}
	for _, o := range orders {
		if o.Broker.IsZero() {
			continue
		}
		o.BrokerSpendableS = shared(o.Broker, o.Owner, o.TokenS)
		o.BrokerSpendableFee = shared(o.Broker, o.Owner, o.FeeToken)
	}
}

// initSpendables gives every order its own (uninitialized) tokenS/feeToken
// Spendable slot. GetSpendableS/GetSpendableFee lazily populate them on
// first ChainView read; the broker-path slots were already assigned by
// dedupeBrokerSpendables, so this only ever sees the direct-path pointers
// still nil. An order whose feeToken is its tokenS gets one slot for both,
// since both draw on the same balance.
func initSpendables(orders []*types.OrderInfo) {
	for _, o := range orders {
		if o.TokenSpendableS == nil {
			o.TokenSpendableS = &types.Spendable{}
		}
		if o.TokenSpendableFee == nil && o.FeeToken == o.TokenS {
			o.TokenSpendableFee = o.TokenSpendableS
		}
		if o.TokenSpendableFee == nil {
			o.TokenSpendableFee = &types.Spendable{}
		}
	}
}

func snapshotFilled(orders []*types.OrderInfo) map[string]*big.Int {
	out := make(map[string]*big.Int, len(orders))
	for _, o := range orders {
		out[hex.EncodeToString(o.Hash)] = new(big.Int).Set(o.FilledAmountS)
	}
	return out
}

func buildRings(input Input) ([]*types.Ring, error) {
	rings := make([]*types.Ring, len(input.Rings))
	for ri, idxs := range input.Rings {
		parts := make([]*types.Participation, len(idxs))
		hashes := make([][]byte, len(idxs))
		for j, oi := range idxs {
			if oi < 0 || oi >= len(input.Orders) {
				return nil, fmt.Errorf("settlement/engine: ring %d references order index %d out of range: %w", ri, oi, types.ErrCorruptInput)
			}
			parts[j] = types.NewParticipation(input.Orders[oi])
			hashes[j] = input.Orders[oi].Hash
		}
		rings[ri] = ring.New(hashRing(hashes), parts)
	}
	return rings, nil
}

// hashRing derives a ring's identity hash from its ordered participants'
// order hashes. This is internal bookkeeping, not a consensus signature
// primitive, so it uses sha256 directly rather than the injected Hasher.
func hashRing(orderHashes [][]byte) []byte {
	h := sha256.New()
	for _, oh := range orderHashes {
		h.Write(oh)
	}
	return h.Sum(nil)
}

func (e *Engine) checkMinerSignature(vd *ordervalidator.Validator, rings []*types.Ring, input Input) error {
	ringHashes := make([][]byte, len(rings))
	for i, r := range rings {
		ringHashes[i] = r.Hash
	}
	miningHash := e.Hasher.HashMining(ringHashes, input.Miner, input.FeeRecipient)
	if !vd.CheckMinerSignature(miningHash, input.Miner, input.MinerSignature) {
		return fmt.Errorf("settlement/engine: %w", types.ErrBadMinerSignature)
	}
	return nil
}

func checkRingPreconditions(r *types.Ring) result.Code {
	if code := ring.CheckRingSize(r); code != result.OK {
		return code
	}
	if code := ring.CheckOrdersValid(r); code != result.OK {
		return code
	}
	if code := ring.CheckForSubRings(r); code != result.OK {
		return code
	}
	return ring.CheckTokenChain(r)
}

func markInvalid(r *types.Ring, invalid map[string]bool) {
	r.Valid = false
	invalid[hex.EncodeToString(r.Hash)] = true
}

func (e *Engine) buildRingMined(r *types.Ring, feeRecipient types.Address) RingMined {
	e.ringIndex++
	fills := make([]Fill, 0, r.Size())
	for _, p := range r.Participations {
		o := p.Order
		feeAmount := new(big.Int).Set(p.FeeAmount)
		if !o.P2P {
			feeAmount = bigmath.Add(feeAmount, p.FeeAmountB)
		}
		fills = append(fills, Fill{
			OrderHash: o.Hash,
			Owner:     o.Owner,
			TokenS:    o.TokenS,
			AmountS:   new(big.Int).Add(p.FillAmountS, p.SplitS),
			Split:     new(big.Int).Set(p.SplitS),
			FeeAmount: feeAmount,
		})
	}
	return RingMined{
		RingIndex:    e.ringIndex,
		RingHash:     "0x" + hex.EncodeToString(r.Hash),
		FeeRecipient: feeRecipient,
		Fills:        fills,
	}
}

// mergeTransfers collapses transfers sharing a merge key by summing
// Amount (§6: "identical tuples are collapsed").
func mergeTransfers(transfers []types.Transfer) []types.Transfer {
	order := make([]types.MergeKey, 0, len(transfers))
	byKey := make(map[types.MergeKey]*types.Transfer, len(transfers))
	for _, t := range transfers {
		k := t.MergeKey()
		if existing, ok := byKey[k]; ok {
			existing.Amount = bigmath.Add(existing.Amount, t.Amount)
			continue
		}
		cp := t
		cp.Amount = new(big.Int).Set(t.Amount)
		byKey[k] = &cp
		order = append(order, k)
	}
	out := make([]types.Transfer, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

func mergeFeeDeltas(rings []*types.Ring) *types.BalanceAccumulator {
	out := types.NewBalanceAccumulator()
	for _, r := range rings {
		if !r.Valid {
			continue
		}
		for _, entry := range r.FeeBalances.Enumerate() {
			out.Add(entry.Owner, entry.Token, entry.Tranche, entry.Amount)
		}
	}
	return out
}

func snapshotBalances(view types.ERC20, transfers []types.Transfer, rings []*types.Ring, feeRecipient types.Address) (*types.BalanceAccumulator, error) {
	acc := types.NewBalanceAccumulator()
	ensure := func(owner, token, tranche types.Address) error {
		if acc.IsKnown(owner, token, tranche) {
			return nil
		}
		bal, err := view.BalanceOf(owner, token)
		if err != nil {
			return fmt.Errorf("settlement/engine: balanceOf(%s, %s): %w", owner, token, err)
		}
		acc.Add(owner, token, tranche, bal)
		return nil
	}
	for _, t := range transfers {
		if err := ensure(t.From, t.Token, t.FromTranche); err != nil {
			return nil, err
		}
		if err := ensure(t.To, t.Token, t.ToTranche); err != nil {
			return nil, err
		}
	}
	for _, r := range rings {
		if !r.Valid {
			continue
		}
		for _, p := range r.Participations {
			if err := ensure(feeRecipient, p.Order.TokenS, types.ZeroAddress); err != nil {
				return nil, err
			}
		}
	}
	return acc, nil
}

func applyTransfers(before *types.BalanceAccumulator, transfers []types.Transfer) *types.BalanceAccumulator {
	after := before.Copy()
	for _, t := range transfers {
		after.Add(t.From, t.Token, t.FromTranche, new(big.Int).Neg(t.Amount))
		after.Add(t.To, t.Token, t.ToTranche, t.Amount)
	}
	return after
}

func snapshotFeeBalances(view types.FeeHolder, deltas *types.BalanceAccumulator) (*types.BalanceAccumulator, error) {
	acc := types.NewBalanceAccumulator()
	for _, entry := range deltas.Enumerate() {
		bal, err := view.FeeBalance(entry.Token, entry.Owner)
		if err != nil {
			return nil, fmt.Errorf("settlement/engine: feeBalance(%s, %s): %w", entry.Token, entry.Owner, err)
		}
		acc.Add(entry.Owner, entry.Token, entry.Tranche, bal)
	}
	return acc, nil
}

// rateRespectDigits is the tolerance §7/§8 invariant 2 ("rate respect")
// is checked at: a filled ring may not move an order off its quoted
// exchange rate by more than one part in 10^8.
const rateRespectDigits = 8

// checkRateRespect enforces invariant 2 for every participation in a
// freshly-computed ring: (fillAmountS+splitS)/fillAmountB must agree with
// amountS/amountB to rateRespectDigits digits. Called once a ring's fill
// computation has succeeded but before AdjustOrderStates commits it, so a
// violation aborts the batch before this ring's order state is committed.
func checkRateRespect(r *types.Ring) error {
	for _, p := range r.Participations {
		o := p.Order
		sold := bigmath.Add(p.FillAmountS, p.SplitS)
		if !bigmath.EqualWithinDigits(sold, p.FillAmountB, o.AmountS, o.AmountB, rateRespectDigits) {
			return fmt.Errorf("settlement/engine: ring %x order %x filled off its quoted rate (sold=%s bought=%s amountS=%s amountB=%s): %w",
				r.Hash, o.Hash, sold, p.FillAmountB, o.AmountS, o.AmountB, types.ErrInvariantBreach)
		}
	}
	return nil
}

// validateRings is the final global invariant check (§4.7 last bullet):
// no negative balance, every order's tokenS outflow is covered by what it
// actually spent, and every allOrNone order ended up fully or zero
// filled.
func validateRings(orders []*types.OrderInfo, transfers []types.Transfer, balancesAfter *types.BalanceAccumulator) error {
	for _, e := range balancesAfter.Enumerate() {
		if e.Amount.Sign() < 0 {
			return fmt.Errorf("settlement/engine: negative balance for owner=%s token=%s tranche=%s: %w", e.Owner, e.Token, e.Tranche, types.ErrInvariantBreach)
		}
	}

	type ownerToken struct {
		Owner, Token types.Address
	}
	spent := make(map[ownerToken]*big.Int)
	for _, t := range transfers {
		k := ownerToken{t.From, t.Token}
		cur, ok := spent[k]
		if !ok {
			cur = new(big.Int)
			spent[k] = cur
		}
		cur.Add(cur, t.Amount)
	}

	for _, o := range orders {
		if o.TokenSpendableS == nil || !o.TokenSpendableS.Initialized {
			continue
		}
		amountSpent := new(big.Int).Sub(o.TokenSpendableS.InitialAmount, o.TokenSpendableS.Amount)
		transferred := spent[ownerToken{o.Owner, o.TokenS}]
		if transferred == nil {
			transferred = new(big.Int)
		}
		if amountSpent.Cmp(transferred) < 0 {
			return fmt.Errorf("settlement/engine: order %x spent %s but transferred %s: %w", o.Hash, amountSpent, transferred, types.ErrInvariantBreach)
		}
		if o.AllOrNone && o.FilledAmountS.Sign() != 0 && o.FilledAmountS.Cmp(o.AmountS) != 0 {
			return fmt.Errorf("settlement/engine: allOrNone order %x partially filled (%s of %s): %w", o.Hash, o.FilledAmountS, o.AmountS, types.ErrInvariantBreach)
		}
	}
	return nil
}
