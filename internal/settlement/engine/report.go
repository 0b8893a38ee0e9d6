package engine

import (
	"math/big"

	"github.com/LoopringSecondary/protocol2-js/internal/settlement/types"
)

// Input is RingsInput (§6): a validated batch of orders grouped into
// rings by order index, plus the mining record. Deserializing the raw
// miner-submitted blob into this shape is out of scope for the core.
type Input struct {
	Orders            []*types.OrderInfo
	Rings             [][]int
	FeeRecipient      types.Address
	Miner             types.Address
	MinerSignature    []byte
	TransactionOrigin types.Address
}

// Fill is one participation's settled outcome inside a RingMined event.
type Fill struct {
	OrderHash []byte
	Owner     types.Address
	TokenS    types.Address
	AmountS   *big.Int
	Split     *big.Int
	FeeAmount *big.Int
}

// RingMined is emitted for every ring that survived to payment.
type RingMined struct {
	RingIndex    int64
	RingHash     string
	FeeRecipient types.Address
	Fills        []Fill
}

// InvalidRingEvent is emitted for every ring invalidated before payment.
type InvalidRingEvent struct {
	RingHash string
}

// Report is SimulatorReport (§6): the complete output of one Simulate
// call.
type Report struct {
	Reverted          bool
	RingMinedEvents   []RingMined
	InvalidRingEvents []InvalidRingEvent
	TransferItems     []types.Transfer

	FeeBalancesBefore *types.BalanceAccumulator
	FeeBalancesAfter  *types.BalanceAccumulator

	FilledAmountsBefore map[string]*big.Int
	FilledAmountsAfter  map[string]*big.Int

	BalancesBefore *types.BalanceAccumulator
	BalancesAfter  *types.BalanceAccumulator
}
