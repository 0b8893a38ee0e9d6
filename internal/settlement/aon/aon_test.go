package aon

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ordervalidator"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ring"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// vd is a bare Validator: ValidateAllOrNone reads only order fields, so
// these tests never need a real Hasher/SignatureVerifier.
var vd = ordervalidator.New(nil, nil)

func addr(tag byte) types.Address {
	var a types.Address
	a[len(a)-1] = tag
	return a
}

func newOrder(allOrNone bool, amountS, filledS int64) *types.OrderInfo {
	return &types.OrderInfo{
		Owner:             addr(1),
		TokenS:            addr(2),
		TokenB:            addr(3),
		FeeToken:          addr(3),
		AmountS:           big.NewInt(amountS),
		AmountB:           big.NewInt(100),
		FeeAmount:         big.NewInt(0),
		AllOrNone:         allOrNone,
		Valid:             true,
		FilledAmountS:     big.NewInt(filledS),
		TokenSpendableS:   types.NewSpendable(big.NewInt(1000)),
		TokenSpendableFee: types.NewSpendable(big.NewInt(1000)),
	}
}

func newParticipation(o *types.OrderInfo, fillS int64) *types.Participation {
	p := types.NewParticipation(o)
	p.FillAmountS = big.NewInt(fillS)
	p.FeeAmount = big.NewInt(0)
	return p
}

func TestResolve_PartiallyFilledAllOrNoneInvalidatesRing(t *testing.T) {
	maker := newOrder(true, 100, 40) // allOrNone, only 40/100 filled
	taker := newOrder(false, 100, 100)

	r := ring.New([]byte("ring"), []*types.Participation{
		newParticipation(maker, 40),
		newParticipation(taker, 100),
	})

	Resolve(vd, []*types.OrderInfo{maker, taker}, []*types.Ring{r})

	assert.False(t, maker.Valid)
	assert.False(t, r.Valid)
}

func TestResolve_FullyFilledAllOrNoneStaysValid(t *testing.T) {
	maker := newOrder(true, 100, 100) // fully filled
	taker := newOrder(false, 100, 100)

	r := ring.New([]byte("ring"), []*types.Participation{
		newParticipation(maker, 100),
		newParticipation(taker, 100),
	})

	Resolve(vd, []*types.OrderInfo{maker, taker}, []*types.Ring{r})

	assert.True(t, maker.Valid)
	assert.True(t, r.Valid)
}

// S4 — AllOrNone cascade across two rings. Ring1 holds AON order O1, which
// only partially fills because its counterparty O2 can't spend more.
// Ring2 is unrelated (O3/O4). Invalidating Ring1 must not cascade to
// Ring2, and reverting Ring1 must restore O1's pre-simulation
// filledAmountS.
func TestResolve_AllOrNoneCascadeDoesNotCrossRings(t *testing.T) {
	o1 := newOrder(true, 100, 0) // AON, nothing filled yet
	o2 := newOrder(false, 100, 0)
	o3 := newOrder(false, 100, 0)
	o4 := newOrder(false, 100, 0)

	p1 := newParticipation(o1, 40) // O2 can only take 40 of O1's 100
	p1.SplitS = big.NewInt(0)
	p2 := newParticipation(o2, 40)
	r1 := ring.New([]byte("ring1"), []*types.Participation{p1, p2})

	p3 := newParticipation(o3, 100)
	p4 := newParticipation(o4, 100)
	r2 := ring.New([]byte("ring2"), []*types.Participation{p3, p4})

	ring.AdjustOrderStates(r1)
	ring.AdjustOrderStates(r2)
	require.Equal(t, int64(40), o1.FilledAmountS.Int64())

	Resolve(vd, []*types.OrderInfo{o1, o2, o3, o4}, []*types.Ring{r1, r2})

	assert.False(t, o1.Valid)
	assert.False(t, r1.Valid)
	assert.Equal(t, int64(0), o1.FilledAmountS.Int64(), "revertOrderStats must restore O1's pre-simulation filledAmountS")

	assert.True(t, r2.Valid)
	assert.True(t, o3.Valid)
	assert.True(t, o4.Valid)
}

func TestResolve_NoAllOrNoneOrdersIsNoop(t *testing.T) {
	a := newOrder(false, 100, 10)
	b := newOrder(false, 100, 10)
	r := ring.New([]byte("ring"), []*types.Participation{
		newParticipation(a, 10),
		newParticipation(b, 10),
	})

	Resolve(vd, []*types.OrderInfo{a, b}, []*types.Ring{r})

	assert.True(t, a.Valid)
	assert.True(t, b.Valid)
	assert.True(t, r.Valid)
}
