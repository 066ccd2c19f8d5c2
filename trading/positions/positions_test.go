package positions_test

import (
	"testing"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
)

func fill(side types.Side, px types.Price, qty types.Qty) types.ClientResponse {
	return types.ClientResponse{
		Kind:     types.ClientResponseFilled,
		ClientID: 1,
		TickerID: 0,
		Side:     side,
		Price:    px,
		ExecQty:  qty,
	}
}

func dec(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

func TestOpenThenPartialClose(t *testing.T) {
	k := positions.NewKeeper(logging.NewTestLogger(), 1)

	k.AddFill(fill(types.SideBuy, 100, 5))
	info := k.Info(0)
	assert.Equal(t, int64(5), info.Position)
	assert.Equal(t, types.Qty(5), info.Volume)
	assert.True(t, info.RealPnL.IsZero())

	// sell 2 of the 5 bought at 100 for 102: realize 2*(102-100) = 4
	k.AddFill(fill(types.SideSell, 102, 2))
	assert.Equal(t, int64(3), info.Position)
	assert.True(t, info.RealPnL.Equal(dec("4")), info.RealPnL.String())
	// remaining 3 long at VWAP 100 marked to the 102 fill: unreal 6
	assert.True(t, info.UnrealPnL.Equal(dec("6")), info.UnrealPnL.String())
	assert.True(t, info.TotalPnL.Equal(dec("10")), info.TotalPnL.String())
}

func TestFlatResetsOpenState(t *testing.T) {
	k := positions.NewKeeper(logging.NewTestLogger(), 1)

	k.AddFill(fill(types.SideBuy, 100, 4))
	k.AddFill(fill(types.SideSell, 101, 4))

	info := k.Info(0)
	assert.Equal(t, int64(0), info.Position)
	assert.True(t, info.RealPnL.Equal(dec("4")))
	assert.True(t, info.UnrealPnL.IsZero())
	assert.True(t, info.TotalPnL.Equal(dec("4")))
}

func TestFlipReopensAtFillPrice(t *testing.T) {
	k := positions.NewKeeper(logging.NewTestLogger(), 1)

	k.AddFill(fill(types.SideBuy, 100, 2))
	// sell 5: closes 2 (realizing 2*(104-100) = 8), opens short 3 at 104
	k.AddFill(fill(types.SideSell, 104, 5))

	info := k.Info(0)
	assert.Equal(t, int64(-3), info.Position)
	assert.True(t, info.RealPnL.Equal(dec("8")), info.RealPnL.String())
	// short 3 at 104 marked to the 104 fill: flat unrealized
	assert.True(t, info.UnrealPnL.IsZero(), info.UnrealPnL.String())

	// short marked to mid 103: unreal 3*(104-103) = 3
	k.UpdateBBO(0, types.BBO{BidPrice: 102, BidQty: 1, AskPrice: 104, AskQty: 1})
	assert.True(t, info.UnrealPnL.Equal(dec("3")), info.UnrealPnL.String())
	assert.True(t, info.TotalPnL.Equal(dec("11")))
}

func TestUpdateBBOIdempotent(t *testing.T) {
	k := positions.NewKeeper(logging.NewTestLogger(), 1)

	k.AddFill(fill(types.SideBuy, 100, 5))
	bbo := types.BBO{BidPrice: 101, BidQty: 3, AskPrice: 103, AskQty: 2}

	k.UpdateBBO(0, bbo)
	info := k.Info(0)
	unreal, total := info.UnrealPnL, info.TotalPnL

	k.UpdateBBO(0, bbo)
	assert.True(t, info.UnrealPnL.Equal(unreal))
	assert.True(t, info.TotalPnL.Equal(total))
	assert.True(t, unreal.Equal(dec("10")), "5 long at 100 marked to mid 102")
}

func TestOneSidedQuoteLeavesMarkUnchanged(t *testing.T) {
	k := positions.NewKeeper(logging.NewTestLogger(), 1)

	k.AddFill(fill(types.SideBuy, 100, 1))
	k.UpdateBBO(0, types.BBO{BidPrice: 101, BidQty: 1, AskPrice: 103, AskQty: 1})
	info := k.Info(0)
	before := info.UnrealPnL

	k.UpdateBBO(0, types.BBO{
		BidPrice: 99, BidQty: 1,
		AskPrice: types.PriceInvalid, AskQty: types.QtyInvalid,
	})
	assert.True(t, info.UnrealPnL.Equal(before))
}
