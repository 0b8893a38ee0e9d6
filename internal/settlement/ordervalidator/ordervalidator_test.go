package ordervalidator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/result"
	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

func addr(tag byte) types.Address {
	var a types.Address
	a[len(a)-1] = tag
	return a
}

func validOrder() *types.OrderInfo {
	return &types.OrderInfo{
		Owner:     addr(1),
		TokenS:    addr(2),
		TokenB:    addr(3),
		FeeToken:  addr(4),
		AmountS:   big.NewInt(1000),
		AmountB:   big.NewInt(1000),
		FeeAmount: big.NewInt(0),
		Valid:     true,
	}
}

type stubHasher struct{ hash []byte }

func (h stubHasher) HashOrder(*types.OrderInfo) []byte { return h.hash }
func (h stubHasher) HashMining([][]byte, types.Address, types.Address) []byte { return h.hash }

type stubVerifier struct{ ok bool }

func (s stubVerifier) VerifyOrderSignature(*types.OrderInfo, []byte) bool     { return s.ok }
func (s stubVerifier) VerifyDualAuthSignature(*types.OrderInfo, []byte) bool  { return s.ok }
func (s stubVerifier) VerifyMinerSignature([]byte, types.Address, []byte) bool { return s.ok }

type stubBrokerRegistry struct {
	interceptor types.Address
	registered  bool
	err         error
}

func (s stubBrokerRegistry) Get(broker, owner types.Address) (types.Address, bool, error) {
	return s.interceptor, s.registered, s.err
}

type stubERC20 struct {
	balances map[types.Address]*big.Int
}

func (s stubERC20) SpendableBalance(owner, token types.Address) (*big.Int, error) {
	if v, ok := s.balances[owner]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (s stubERC20) BalanceOf(owner, token types.Address) (*big.Int, error) {
	return s.SpendableBalance(owner, token)
}

func TestValidateInfo(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})

	t.Run("valid order", func(t *testing.T) {
		o := validOrder()
		code := vd.ValidateInfo(o, 100)
		assert.Equal(t, result.OK, code)
		assert.True(t, o.Valid)
	})

	t.Run("not yet valid", func(t *testing.T) {
		o := validOrder()
		o.ValidSince = 200
		assert.Equal(t, result.TemExpired, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})

	t.Run("expired", func(t *testing.T) {
		o := validOrder()
		o.ValidUntil = 50
		assert.Equal(t, result.TemExpired, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})

	t.Run("zero amountS", func(t *testing.T) {
		o := validOrder()
		o.AmountS = big.NewInt(0)
		assert.Equal(t, result.TemZeroAmount, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})

	t.Run("zero amountB", func(t *testing.T) {
		o := validOrder()
		o.AmountB = big.NewInt(0)
		assert.Equal(t, result.TemZeroAmount, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})

	t.Run("missing fee token", func(t *testing.T) {
		o := validOrder()
		o.FeeToken = types.ZeroAddress
		assert.Equal(t, result.TemMissingFeeToken, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})

	t.Run("missing owner", func(t *testing.T) {
		o := validOrder()
		o.Owner = types.ZeroAddress
		assert.Equal(t, result.TemMissingOwner, vd.ValidateInfo(o, 100))
		assert.False(t, o.Valid)
	})
}

func TestCheckP2P(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})

	o := validOrder()
	vd.CheckP2P(o)
	assert.False(t, o.P2P)

	o.TokenSFeePercentage = 10
	vd.CheckP2P(o)
	assert.True(t, o.P2P)

	o2 := validOrder()
	o2.TokenBFeePercentage = 10
	vd.CheckP2P(o2)
	assert.True(t, o2.P2P)
}

func TestComputeHash(t *testing.T) {
	vd := New(stubHasher{hash: []byte{0xaa, 0xbb}}, stubVerifier{})
	o := validOrder()

	got := vd.ComputeHash(o)
	assert.Equal(t, []byte{0xaa, 0xbb}, got)
	assert.Equal(t, []byte{0xaa, 0xbb}, o.Hash)
}

func TestResolveBroker(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})

	t.Run("no broker is a no-op", func(t *testing.T) {
		o := validOrder()
		code, err := vd.ResolveBroker(o, stubBrokerRegistry{})
		require.NoError(t, err)
		assert.Equal(t, result.OK, code)
	})

	t.Run("registered broker sets interceptor", func(t *testing.T) {
		o := validOrder()
		o.Broker = addr(9)
		interceptor := addr(0x42)
		code, err := vd.ResolveBroker(o, stubBrokerRegistry{interceptor: interceptor, registered: true})
		require.NoError(t, err)
		assert.Equal(t, result.OK, code)
		assert.Equal(t, interceptor, o.BrokerInterceptor)
	})

	t.Run("unregistered broker invalidates the order", func(t *testing.T) {
		o := validOrder()
		o.Broker = addr(9)
		code, err := vd.ResolveBroker(o, stubBrokerRegistry{registered: false})
		require.NoError(t, err)
		assert.Equal(t, result.TecBrokerUnregistered, code)
		assert.False(t, o.Valid)
	})
}

func TestCheckBrokerSignature(t *testing.T) {
	o := validOrder()
	o.Broker = addr(9)

	t.Run("no signature is a no-op", func(t *testing.T) {
		vd := New(stubHasher{}, stubVerifier{ok: false})
		assert.Equal(t, result.OK, vd.CheckBrokerSignature(o, nil))
	})

	t.Run("valid signature", func(t *testing.T) {
		o := validOrder()
		o.Broker = addr(9)
		vd := New(stubHasher{}, stubVerifier{ok: true})
		assert.Equal(t, result.OK, vd.CheckBrokerSignature(o, []byte{1}))
		assert.True(t, o.Valid)
	})

	t.Run("invalid signature", func(t *testing.T) {
		o := validOrder()
		o.Broker = addr(9)
		vd := New(stubHasher{}, stubVerifier{ok: false})
		assert.Equal(t, result.TemBadSignature, vd.CheckBrokerSignature(o, []byte{1}))
		assert.False(t, o.Valid)
	})
}

func TestCheckDualAuthSignature(t *testing.T) {
	t.Run("empty signature is a no-op", func(t *testing.T) {
		vd := New(stubHasher{}, stubVerifier{ok: false})
		o := validOrder()
		assert.Equal(t, result.OK, vd.CheckDualAuthSignature(o, nil))
		assert.True(t, o.Valid)
	})

	t.Run("invalid signature invalidates", func(t *testing.T) {
		vd := New(stubHasher{}, stubVerifier{ok: false})
		o := validOrder()
		assert.Equal(t, result.TemBadSignature, vd.CheckDualAuthSignature(o, []byte{1}))
		assert.False(t, o.Valid)
	})
}

func TestCheckMinerSignature(t *testing.T) {
	ok := New(stubHasher{}, stubVerifier{ok: true})
	assert.True(t, ok.CheckMinerSignature([]byte("hash"), addr(1), []byte{1}))

	bad := New(stubHasher{}, stubVerifier{ok: false})
	assert.False(t, bad.CheckMinerSignature([]byte("hash"), addr(1), []byte{1}))
}

func TestGetSpendableS_CachesAndIntersectsWithBroker(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})
	o := validOrder()
	o.TokenSpendableS = &types.Spendable{}
	view := stubERC20{balances: map[types.Address]*big.Int{o.Owner: big.NewInt(1000)}}

	live, err := vd.GetSpendableS(view, o)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), live.Int64())
	assert.True(t, o.TokenSpendableS.Initialized)

	// A broker path caps the effective spendable at the lower of the two.
	o.BrokerSpendableS = &types.Spendable{}
	brokerView := stubERC20{balances: map[types.Address]*big.Int{o.Owner: big.NewInt(400)}}
	live, err = vd.GetTokenSpendable(brokerView, o.TokenSpendableS, o.BrokerSpendableS, o.TokenS, o.Owner)
	require.NoError(t, err)
	assert.Equal(t, int64(400), live.Int64(), "broker path must cap the live spendable")
}

func TestReserveAndResetReservations(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})
	o := validOrder()
	o.TokenSpendableS = types.NewSpendable(big.NewInt(1000))
	o.TokenSpendableFee = types.NewSpendable(big.NewInt(1000))
	o.BrokerSpendableS = types.NewSpendable(big.NewInt(1000))
	o.BrokerSpendableFee = types.NewSpendable(big.NewInt(1000))

	vd.ReserveAmountS(o, big.NewInt(300))
	vd.ReserveAmountFee(o, big.NewInt(50))

	assert.Equal(t, int64(700), o.TokenSpendableS.Live().Int64())
	assert.Equal(t, int64(950), o.TokenSpendableFee.Live().Int64())
	assert.Equal(t, int64(700), o.BrokerSpendableS.Live().Int64())
	assert.Equal(t, int64(950), o.BrokerSpendableFee.Live().Int64())

	vd.ResetReservations(o)

	assert.Equal(t, int64(1000), o.TokenSpendableS.Live().Int64())
	assert.Equal(t, int64(1000), o.TokenSpendableFee.Live().Int64())
	assert.Equal(t, int64(1000), o.BrokerSpendableS.Live().Int64())
	assert.Equal(t, int64(1000), o.BrokerSpendableFee.Live().Int64())
}

func TestValidateAllOrNone(t *testing.T) {
	vd := New(stubHasher{}, stubVerifier{})

	t.Run("non-AON order is a no-op", func(t *testing.T) {
		o := validOrder()
		o.FilledAmountS = big.NewInt(0)
		assert.Equal(t, result.OK, vd.ValidateAllOrNone(o))
		assert.True(t, o.Valid)
	})

	t.Run("fully filled AON order stays valid", func(t *testing.T) {
		o := validOrder()
		o.AllOrNone = true
		o.FilledAmountS = new(big.Int).Set(o.AmountS)
		assert.Equal(t, result.OK, vd.ValidateAllOrNone(o))
		assert.True(t, o.Valid)
	})

	t.Run("partially filled AON order invalidates", func(t *testing.T) {
		o := validOrder()
		o.AllOrNone = true
		o.Valid = true
		o.FilledAmountS = big.NewInt(400)
		assert.Equal(t, result.TecAONUnfilled, vd.ValidateAllOrNone(o))
		assert.False(t, o.Valid)
	})
}
