package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringCoversEveryCode(t *testing.T) {
	codes := []Code{
		OK, TemExpired, TemZeroAmount, TemMissingFeeToken, TemMissingOwner,
		TemBadSignature, TecBrokerUnregistered, TecCancelled, TecAONUnfilled,
		TecSubRing, TecTokenChainMismatch, TecRingSizeInvalid,
		TecInfeasibleResize, TecInfeasibleFee, TecWaiveOverflow,
		TecCanSendRefused, TecOrderInvalid,
	}
	for _, c := range codes {
		assert.NotEqual(t, "TecUnknown", c.String())
	}
	assert.Equal(t, "TecUnknown", Code(999).String())
}

func TestIsOrderCode(t *testing.T) {
	orderCodes := []Code{
		TemExpired, TemZeroAmount, TemMissingFeeToken, TemMissingOwner,
		TemBadSignature, TecBrokerUnregistered, TecCancelled, TecAONUnfilled,
	}
	for _, c := range orderCodes {
		assert.True(t, c.IsOrderCode(), c.String())
	}

	ringCodes := []Code{
		TecSubRing, TecTokenChainMismatch, TecRingSizeInvalid,
		TecInfeasibleResize, TecInfeasibleFee, TecWaiveOverflow,
		TecCanSendRefused, TecOrderInvalid,
	}
	for _, c := range ringCodes {
		assert.False(t, c.IsOrderCode(), c.String())
	}

	assert.False(t, OK.IsOrderCode())
}
