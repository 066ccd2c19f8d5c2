package types_test

import (
	"testing"

	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
)

func TestSide(t *testing.T) {
	t.Run("value maps buy to +1 and sell to -1", func(t *testing.T) {
		assert.Equal(t, int64(1), types.SideBuy.Value())
		assert.Equal(t, int64(-1), types.SideSell.Value())
	})

	t.Run("index maps buy to 0 and sell to 1", func(t *testing.T) {
		assert.Equal(t, 0, types.SideBuy.Index())
		assert.Equal(t, 1, types.SideSell.Index())
	})

	t.Run("opposite", func(t *testing.T) {
		assert.Equal(t, types.SideSell, types.SideBuy.Opposite())
		assert.Equal(t, types.SideBuy, types.SideSell.Opposite())
		assert.Equal(t, types.SideInvalid, types.SideInvalid.Opposite())
	})
}

func TestSentinelsAreNotLegalValues(t *testing.T) {
	assert.NotEqual(t, types.OrderID(0), types.OrderIDInvalid)
	assert.NotEqual(t, types.Price(0), types.PriceInvalid)
	assert.True(t, types.PriceInvalid > 0)
	assert.Equal(t, "INVALID", types.OrderIDInvalid.String())
	assert.Equal(t, "INVALID", types.PriceInvalid.String())
}

func TestBBO(t *testing.T) {
	b := types.NewBBO()
	assert.False(t, b.TwoSided())
	b.BidPrice, b.BidQty = 100, 5
	assert.False(t, b.TwoSided())
	b.AskPrice, b.AskQty = 101, 7
	assert.True(t, b.TwoSided())
}
