package engine

import (
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// fakeChainView is an in-memory ChainView used across engine tests. It
// keeps balances/allowances as plain maps so each test can set up exactly
// the state its scenario needs without touching real storage.
type fakeChainView struct {
	balances map[types.Address]map[types.Address]*big.Int
	filled   map[string]*big.Int
	feeBal   map[types.Address]map[types.Address]*big.Int
	burnRate map[types.Address]uint32
	brokers  map[[2]types.Address]types.Address
	canSend  map[types.Address]func(from, to, fromTranche types.Address, amount *big.Int) (types.CanSendStatus, types.Address)
}

func newFakeChainView() *fakeChainView {
	return &fakeChainView{
		balances: make(map[types.Address]map[types.Address]*big.Int),
		filled:   make(map[string]*big.Int),
		feeBal:   make(map[types.Address]map[types.Address]*big.Int),
		burnRate: make(map[types.Address]uint32),
		brokers:  make(map[[2]types.Address]types.Address),
		canSend:  make(map[types.Address]func(types.Address, types.Address, types.Address, *big.Int) (types.CanSendStatus, types.Address)),
	}
}

func (f *fakeChainView) setBalance(owner, token types.Address, amount int64) {
	m, ok := f.balances[owner]
	if !ok {
		m = make(map[types.Address]*big.Int)
		f.balances[owner] = m
	}
	m[token] = big.NewInt(amount)
}

func (f *fakeChainView) SpendableBalance(owner, token types.Address) (*big.Int, error) {
	return f.BalanceOf(owner, token)
}

func (f *fakeChainView) BalanceOf(owner, token types.Address) (*big.Int, error) {
	if m, ok := f.balances[owner]; ok {
		if v, ok := m[token]; ok {
			return new(big.Int).Set(v), nil
		}
	}
	return new(big.Int), nil
}

func (f *fakeChainView) BatchGetFilledAndCheckCancelled(hashes [][]byte) ([]*big.Int, error) {
	out := make([]*big.Int, len(hashes))
	for i, h := range hashes {
		if v, ok := f.filled[string(h)]; ok {
			out[i] = new(big.Int).Set(v)
			continue
		}
		out[i] = new(big.Int)
	}
	return out, nil
}

func (f *fakeChainView) Filled(hash []byte) (*big.Int, error) {
	if v, ok := f.filled[string(hash)]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (f *fakeChainView) FeeBalance(token, holder types.Address) (*big.Int, error) {
	if m, ok := f.feeBal[holder]; ok {
		if v, ok := m[token]; ok {
			return new(big.Int).Set(v), nil
		}
	}
	return new(big.Int), nil
}

func (f *fakeChainView) GetBurnRate(token types.Address) (uint32, error) {
	return f.burnRate[token], nil
}

func (f *fakeChainView) Get(broker, owner types.Address) (types.Address, bool, error) {
	if broker.IsZero() {
		return types.ZeroAddress, false, nil
	}
	if interceptor, ok := f.brokers[[2]types.Address{broker, owner}]; ok {
		return interceptor, true, nil
	}
	return types.ZeroAddress, true, nil
}

func (f *fakeChainView) CanSend(token, from, to, fromTranche types.Address, amount *big.Int, data []byte) (types.CanSendStatus, types.Address, error) {
	if fn, ok := f.canSend[token]; ok {
		status, dest := fn(from, to, fromTranche, amount)
		return status, dest, nil
	}
	return types.CanSendStatusA0, fromTranche, nil
}

// addr builds a deterministic, distinct Address from a single byte tag —
// tests never need real-looking hex, only stable identity.
func addr(tag byte) types.Address {
	var a types.Address
	a[len(a)-1] = tag
	return a
}

func newOrder(owner, recipient, tokenS, tokenB, feeToken types.Address, amountS, amountB, feeAmount int64) *types.OrderInfo {
	return &types.OrderInfo{
		Owner:          owner,
		TokenRecipient: recipient,
		TokenS:         tokenS,
		TokenB:         tokenB,
		FeeToken:       feeToken,
		AmountS:        big.NewInt(amountS),
		AmountB:        big.NewInt(amountB),
		FeeAmount:      big.NewInt(feeAmount),
		ValidSince:     0,
		ValidUntil:     1 << 40,
		Valid:          true,
		FilledAmountS:  new(big.Int),
	}
}

type stubHasher struct{}

func (stubHasher) HashOrder(o *types.OrderInfo) []byte {
	return append([]byte{}, o.Owner[:]...)
}

func (stubHasher) HashMining(ringHashes [][]byte, miner, feeRecipient types.Address) []byte {
	h := make([]byte, 0, 32)
	for _, rh := range ringHashes {
		h = append(h, rh...)
	}
	return h
}

type stubVerifier struct{ ok bool }

func (s stubVerifier) VerifyOrderSignature(*types.OrderInfo, []byte) bool      { return s.ok }
func (s stubVerifier) VerifyDualAuthSignature(*types.OrderInfo, []byte) bool  { return s.ok }
func (s stubVerifier) VerifyMinerSignature([]byte, types.Address, []byte) bool { return s.ok }
