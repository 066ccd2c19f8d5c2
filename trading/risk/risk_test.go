package risk_test

import (
	"testing"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
)

func newManager(t *testing.T, cfg risk.Cfg) (*risk.Manager, *positions.Keeper) {
	t.Helper()
	keeper := positions.NewKeeper(logging.NewTestLogger(), 1)
	return risk.NewManager(logging.NewTestLogger(), keeper, []risk.Cfg{cfg}), keeper
}

func TestOrderTooLarge(t *testing.T) {
	m, _ := newManager(t, risk.Cfg{
		MaxOrderSize: 10,
		MaxPosition:  100,
		MaxLoss:      num.MustDecimalFromString("-100"),
	})

	assert.Equal(t, risk.CheckAllowed, m.Check(0, types.SideBuy, 10))
	assert.Equal(t, risk.CheckOrderTooLarge, m.Check(0, types.SideBuy, 11))
}

func TestPositionTooLarge(t *testing.T) {
	m, keeper := newManager(t, risk.Cfg{
		MaxOrderSize: 100,
		MaxPosition:  10,
		MaxLoss:      num.MustDecimalFromString("-100"),
	})

	keeper.AddFill(types.ClientResponse{
		Kind: types.ClientResponseFilled, TickerID: 0,
		Side: types.SideBuy, Price: 100, ExecQty: 8,
	})

	assert.Equal(t, risk.CheckAllowed, m.Check(0, types.SideBuy, 2))
	assert.Equal(t, risk.CheckPositionTooLarge, m.Check(0, types.SideBuy, 3))
	// selling reduces the long first; the projected short stays within bounds
	assert.Equal(t, risk.CheckAllowed, m.Check(0, types.SideSell, 18))
	assert.Equal(t, risk.CheckPositionTooLarge, m.Check(0, types.SideSell, 19))
}

func TestLossTooLarge(t *testing.T) {
	m, keeper := newManager(t, risk.Cfg{
		MaxOrderSize: 100,
		MaxPosition:  100,
		MaxLoss:      num.MustDecimalFromString("-5"),
	})

	// buy at 100, sell at 90: realize -10, through the loss floor
	keeper.AddFill(types.ClientResponse{
		Kind: types.ClientResponseFilled, TickerID: 0,
		Side: types.SideBuy, Price: 100, ExecQty: 1,
	})
	keeper.AddFill(types.ClientResponse{
		Kind: types.ClientResponseFilled, TickerID: 0,
		Side: types.SideSell, Price: 90, ExecQty: 1,
	})

	assert.Equal(t, risk.CheckLossTooLarge, m.Check(0, types.SideBuy, 1))
}
