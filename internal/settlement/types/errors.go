package types

import "errors"

// Fatal sentinel errors: any of these propagates out of a simulation run
// rather than localizing to one order or ring (§7.3).
var (
	ErrBadMinerSignature = errors.New("settlement: invalid miner signature")
	ErrCorruptInput      = errors.New("settlement: corrupt input")
	ErrInvariantBreach   = errors.New("settlement: post-settlement invariant breach")
	ErrCanSendRefused    = errors.New("settlement: erc1400 canSend refused at payment time")
)
