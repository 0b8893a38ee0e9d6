package types

import (
	"math/big"
	"sort"
)

// balanceKey is the (owner, token, tranche) triple BalanceAccumulator is
// keyed on. ERC20 entries always carry ZeroAddress as Tranche.
type balanceKey struct {
	Owner   Address
	Token   Address
	Tranche Address
}

// BalanceAccumulator is the sparse, additive (owner, token, tranche) -> BigInt
// accumulator described as "BalanceBook" in the settlement design: every
// ring's fee/burn/rebate distribution writes into one of these, and the
// engine merges per-ring books into one global book for the final report.
// Insertion order is not observable; Enumerate always returns entries
// sorted by the triple so reports are reproducible.
type BalanceAccumulator struct {
	entries map[balanceKey]*big.Int
}

// NewBalanceAccumulator returns an empty accumulator.
func NewBalanceAccumulator() *BalanceAccumulator {
	return &BalanceAccumulator{entries: make(map[balanceKey]*big.Int)}
}

// Add creates a zero entry on first touch, then adds delta (which may be
// negative) to the (owner, token, tranche) triple.
func (b *BalanceAccumulator) Add(owner, token, tranche Address, delta *big.Int) {
	k := balanceKey{owner, token, tranche}
	cur, ok := b.entries[k]
	if !ok {
		cur = new(big.Int)
		b.entries[k] = cur
	}
	cur.Add(cur, delta)
}

// Get returns the accumulated amount for the triple, zero if absent.
func (b *BalanceAccumulator) Get(owner, token, tranche Address) *big.Int {
	k := balanceKey{owner, token, tranche}
	if v, ok := b.entries[k]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// IsKnown reports whether the triple was ever written, including an
// explicit zero delta.
func (b *BalanceAccumulator) IsKnown(owner, token, tranche Address) bool {
	_, ok := b.entries[balanceKey{owner, token, tranche}]
	return ok
}

// Copy returns a deep clone of b.
func (b *BalanceAccumulator) Copy() *BalanceAccumulator {
	out := NewBalanceAccumulator()
	for k, v := range b.entries {
		out.entries[k] = new(big.Int).Set(v)
	}
	return out
}

// BalanceEntry is one (owner, token, tranche, amount) row from Enumerate.
type BalanceEntry struct {
	Owner   Address
	Token   Address
	Tranche Address
	Amount  *big.Int
}

// Enumerate returns every entry sorted by (owner, token, tranche) so that
// reports are byte-for-byte reproducible across runs.
func (b *BalanceAccumulator) Enumerate() []BalanceEntry {
	out := make([]BalanceEntry, 0, len(b.entries))
	for k, v := range b.entries {
		out = append(out, BalanceEntry{k.Owner, k.Token, k.Tranche, new(big.Int).Set(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner.Hex32() < out[j].Owner.Hex32()
		}
		if out[i].Token != out[j].Token {
			return out[i].Token.Hex32() < out[j].Token.Hex32()
		}
		return out[i].Tranche.Hex32() < out[j].Tranche.Hex32()
	})
	return out
}

// Tokens returns the set of distinct tokens that appear in b.
func (b *BalanceAccumulator) Tokens() map[Address]struct{} {
	out := make(map[Address]struct{})
	for k := range b.entries {
		out[k.Token] = struct{}{}
	}
	return out
}

// UnionTokens returns the union of the token sets of a and b. The engine's
// settlement validation does not call it.
func UnionTokens(a, b *BalanceAccumulator) []Address {
	set := make(map[Address]struct{})
	for t := range a.Tokens() {
		set[t] = struct{}{}
	}
	for t := range b.Tokens() {
		set[t] = struct{}{}
	}
	out := make([]Address, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex32() < out[j].Hex32() })
	return out
}
