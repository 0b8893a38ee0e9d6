package types

import "math/big"

// Transfer is one concrete token movement emitted by a ring's payment
// step. The engine merges transfers sharing the same
// (token, from, to, tokenType, fromTranche, data) tuple by summing Amount.
type Transfer struct {
	Token       Address
	From        Address
	To          Address
	Amount      *big.Int
	TokenType   TokenType
	FromTranche Address
	ToTranche   Address
	Data        []byte
}

// MergeKey identifies transfers eligible to be summed together.
type MergeKey struct {
	Token       Address
	From        Address
	To          Address
	TokenType   TokenType
	FromTranche Address
	Data        string
}

func (t Transfer) MergeKey() MergeKey {
	return MergeKey{
		Token:       t.Token,
		From:        t.From,
		To:          t.To,
		TokenType:   t.TokenType,
		FromTranche: t.FromTranche,
		Data:        string(t.Data),
	}
}
