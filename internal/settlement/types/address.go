package types

import (
	"encoding/hex"
	"strings"
)

// Address is a 20-byte identifier. It is keyed as a 32-byte zero-padded
// hex string (see Hex32) so it can sit alongside token/tranche addresses
// in a single triple-keyed map without a separate length discriminator.
type Address [20]byte

// ZeroAddress is the canonical "no tranche / default" marker.
var ZeroAddress = Address{}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex32 renders a as a 32-byte zero-padded hex string (64 hex chars,
// no 0x prefix), the canonical map key representation.
func (a Address) Hex32() string {
	var buf [32]byte
	copy(buf[12:], a[:])
	return hex.EncodeToString(buf[:])
}

// String implements fmt.Stringer as a 0x-prefixed 20-byte hex address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// AddressFromHex parses a hex string (with or without 0x prefix) into an
// Address. An input of 20 bytes or more (such as a zero-padded 32-byte
// key) keeps only its low 20 bytes; a shorter input is left-padded with
// zeros.
func AddressFromHex(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	var a Address
	switch {
	case len(b) >= 32:
		copy(a[:], b[len(b)-20:])
	case len(b) >= 20:
		copy(a[:], b[len(b)-20:])
	default:
		copy(a[20-len(b):], b)
	}
	return a, nil
}
