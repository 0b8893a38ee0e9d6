// Package bigmath collects the arbitrary-precision arithmetic helpers the
// settlement core uses. Every percentage/ratio computation multiplies
// first and truncates (toward zero) after, never the other way around,
// so that results match a consensus implementation bit-for-bit.
package bigmath

import "math/big"

// Zero returns a fresh zero-valued big.Int. Callers that need to mutate a
// running total should start from Zero() rather than share a package-level
// value.
func Zero() *big.Int {
	return new(big.Int)
}

// New wraps an int64 as a *big.Int.
func New(v int64) *big.Int {
	return big.NewInt(v)
}

// MulDiv computes floor-toward-zero(a * num / den). den must be non-zero;
// callers are expected to have checked for a zero denominator already,
// since a zero fee-amount-base or zero order amount is itself a validation
// failure upstream.
func MulDiv(a, num, den *big.Int) *big.Int {
	t := new(big.Int).Mul(a, num)
	return t.Quo(t, den)
}

// MulDivRat is MulDiv but for the (rare) case where num/den are given as
// plain ints, e.g. percentage-base arithmetic.
func MulDivRat(a *big.Int, num, den int64) *big.Int {
	return MulDiv(a, big.NewInt(num), big.NewInt(den))
}

// Add returns a + b without mutating either argument.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub returns a - b without mutating either argument.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// IsZero reports whether v is nil or exactly zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// IsNeg reports whether v is strictly negative.
func IsNeg(v *big.Int) bool {
	return v != nil && v.Sign() < 0
}

// LTE reports a <= b.
func LTE(a, b *big.Int) bool {
	return a.Cmp(b) <= 0
}

// LT reports a < b.
func LT(a, b *big.Int) bool {
	return a.Cmp(b) < 0
}

// GT reports a > b.
func GT(a, b *big.Int) bool {
	return a.Cmp(b) > 0
}

// GTE reports a >= b.
func GTE(a, b *big.Int) bool {
	return a.Cmp(b) >= 0
}

// EqualWithinDigits reports whether a/b and c/d agree to the given number
// of decimal places (both quotients truncated after that many digits),
// used for the tolerant rate-respect check in the engine's
// checkRateRespect (§7: "tolerant equality with 8-digit
// precision in the validation path"). The transfers themselves never use
// this — they are always computed bit-exact via MulDiv.
func EqualWithinDigits(a, b, c, d *big.Int, digits int) bool {
	if b.Sign() == 0 || d.Sign() == 0 {
		return b.Sign() == 0 && d.Sign() == 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	// compare (a*d*scale)/(b*d) against (c*b*scale)/(d*b) at integer precision:
	// scaled cross-multiplication avoids floating point entirely.
	lhs := new(big.Int).Mul(a, d)
	lhs.Mul(lhs, scale)
	lhs.Quo(lhs, new(big.Int).Mul(b, d))

	rhs := new(big.Int).Mul(c, b)
	rhs.Mul(rhs, scale)
	rhs.Quo(rhs, new(big.Int).Mul(d, b))

	return lhs.Cmp(rhs) == 0
}
