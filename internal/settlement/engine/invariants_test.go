package engine

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/ring"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// Invariant 2 ("rate respect"): checkRateRespect unit tests exercise the
// boundary directly, independent of any particular Simulate fixture.

func TestCheckRateRespect_AcceptsExactFill(t *testing.T) {
	o := newOrder(addr(1), addr(1), addr(2), addr(3), addr(3), 1000, 1000, 0)
	p := types.NewParticipation(o)
	p.FillAmountS = big.NewInt(1000)
	p.FillAmountB = big.NewInt(1000)
	r := ring.New([]byte("r"), []*types.Participation{p})

	assert.NoError(t, checkRateRespect(r))
}

func TestCheckRateRespect_AcceptsMarginFill(t *testing.T) {
	// A offers 1100 X for 1000 Y but the ring only needs 1000 to close; the
	// other 100 becomes margin (S2). That must not read as a rate violation.
	o := newOrder(addr(1), addr(1), addr(2), addr(3), addr(3), 1100, 1000, 0)
	p := types.NewParticipation(o)
	p.FillAmountS = big.NewInt(1000)
	p.SplitS = big.NewInt(100)
	p.FillAmountB = big.NewInt(1000)
	r := ring.New([]byte("r"), []*types.Participation{p})

	assert.NoError(t, checkRateRespect(r))
}

func TestCheckRateRespect_RejectsOffRateFill(t *testing.T) {
	o := newOrder(addr(1), addr(1), addr(2), addr(3), addr(3), 1000, 1000, 0)
	p := types.NewParticipation(o)
	p.FillAmountS = big.NewInt(1000)
	p.FillAmountB = big.NewInt(900) // wanted 1000 Y for 1000 X, only credited 900
	r := ring.New([]byte("r"), []*types.Participation{p})

	err := checkRateRespect(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvariantBreach)
}

// Property sweep: every Simulate fixture below is run once and checked for
// non-negative resulting balances, non-decreasing filledAmountS, and the
// absence of self-transfers.
func TestSimulate_InvariantSweep(t *testing.T) {
	tokenX, tokenY := addr(1), addr(2)
	a, b := addr(0xa), addr(0xb)

	fixtures := []struct {
		name  string
		build func() (Input, *fakeChainView)
	}{
		{
			name: "S1",
			build: func() (Input, *fakeChainView) {
				orderA := newOrder(a, a, tokenX, tokenY, tokenY, 1000, 1000, 0)
				orderB := newOrder(b, b, tokenY, tokenX, tokenX, 1000, 1000, 0)
				view := newFakeChainView()
				view.setBalance(a, tokenX, 1000)
				view.setBalance(b, tokenY, 1000)
				return Input{Orders: []*types.OrderInfo{orderA, orderB}, Rings: [][]int{{0, 1}}, FeeRecipient: addr(0xf0), Miner: addr(0xf1)}, view
			},
		},
		{
			name: "S2",
			build: func() (Input, *fakeChainView) {
				orderA := newOrder(a, a, tokenX, tokenY, tokenY, 1100, 1000, 0)
				orderB := newOrder(b, b, tokenY, tokenX, tokenX, 1000, 1000, 0)
				view := newFakeChainView()
				view.setBalance(a, tokenX, 1100)
				view.setBalance(b, tokenY, 1000)
				return Input{Orders: []*types.OrderInfo{orderA, orderB}, Rings: [][]int{{0, 1}}, FeeRecipient: addr(0xf0), Miner: addr(0xf1)}, view
			},
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			input, view := f.build()
			report, err := newEngine().Simulate(context.Background(), input, view, 100)
			require.NoError(t, err)

			// Invariant 9: no resulting balance ever goes negative.
			for _, e := range report.BalancesAfter.Enumerate() {
				assert.True(t, e.Amount.Sign() >= 0, "%s: negative balance for %+v", f.name, e)
			}

			// filledAmountS is monotonically non-decreasing.
			for _, o := range input.Orders {
				key := hex.EncodeToString(o.Hash)
				before := report.FilledAmountsBefore[key]
				after := report.FilledAmountsAfter[key]
				assert.True(t, after.Cmp(before) >= 0, "%s: filledAmountS decreased for %x", f.name, o.Hash)
			}

			// No transfer has the same sender and receiver.
			for _, tr := range report.TransferItems {
				assert.NotEqual(t, tr.From, tr.To, "%s: self-transfer %+v", f.name, tr)
			}
		})
	}
}
