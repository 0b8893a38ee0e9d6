package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/crypto/ripemd160"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// OrderHasher is the default types.Hasher: it hashes an order's economic
// fields (the fields a signature must cover) and a mining record's ring
// hashes the same way CalcAccountID derives an address from a public key
// — sha256 then ripemd160, giving a 20-byte digest wherever the settlement
// core needs one.
type OrderHasher struct{}

func (OrderHasher) HashOrder(o *types.OrderInfo) []byte {
	h := sha256.New()
	h.Write(o.Owner[:])
	h.Write(o.TokenS[:])
	h.Write(o.TokenB[:])
	h.Write(o.FeeToken[:])
	h.Write(o.AmountS.Bytes())
	h.Write(o.AmountB.Bytes())
	h.Write(o.FeeAmount.Bytes())
	writeInt64(h, o.ValidSince)
	writeInt64(h, o.ValidUntil)
	writeInt64(h, o.FeePercentage)
	writeInt64(h, o.TokenSFeePercentage)
	writeInt64(h, o.TokenBFeePercentage)
	writeInt64(h, o.WalletSplitPercentage)
	writeInt64(h, o.WaiveFeePercentage)
	if o.AllOrNone {
		h.Write([]byte{1})
	}
	sum := h.Sum(nil)
	return ripemd160Of(sum)
}

func (OrderHasher) HashMining(ringHashes [][]byte, miner, feeRecipient types.Address) []byte {
	h := sha256.New()
	for _, rh := range ringHashes {
		h.Write(rh)
	}
	h.Write(miner[:])
	h.Write(feeRecipient[:])
	return ripemd160Of(h.Sum(nil))
}

func writeInt64(h interface{ Write([]byte) (int, error) }, v int64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

func ripemd160Of(b []byte) []byte {
	r := ripemd160.New()
	r.Write(b)
	return r.Sum(nil)
}

// RecoverableVerifier is the default types.SignatureVerifier. It treats
// every signature as a 65-byte compact ECDSA signature (recovery code, r, s)
// over secp256k1 — the same recoverable-signature shape the rest of the
// pack's secp256k1 package produces — and accepts it when the recovered
// public key hashes (via CalcAccountID) to the expected address.
type RecoverableVerifier struct{}

func (RecoverableVerifier) VerifyOrderSignature(order *types.OrderInfo, sig []byte) bool {
	h := OrderHasher{}.HashOrder(order)
	return verifyRecoverable(h, order.Owner, sig)
}

func (RecoverableVerifier) VerifyDualAuthSignature(order *types.OrderInfo, sig []byte) bool {
	h := OrderHasher{}.HashOrder(order)
	return verifyRecoverable(h, order.Owner, sig)
}

func (RecoverableVerifier) VerifyMinerSignature(miningHash []byte, miner types.Address, sig []byte) bool {
	return verifyRecoverable(miningHash, miner, sig)
}

func verifyRecoverable(hash []byte, expected types.Address, sig []byte) bool {
	if len(sig) != 65 {
		return false
	}
	pubKey, _, err := btcec.RecoverCompact(sig, hash)
	if err != nil {
		return false
	}
	derived := CalcAccountID(pubKey.SerializeCompressed())
	return types.Address(derived) == expected
}
