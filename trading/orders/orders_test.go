package orders_test

import (
	"testing"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/orders"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	requests []types.ClientRequest
}

func (r *recordingSender) SendClientRequest(req types.ClientRequest) {
	r.requests = append(r.requests, req)
}

func newManager(t *testing.T, cfg risk.Cfg) (*orders.Manager, *recordingSender) {
	t.Helper()
	log := logging.NewTestLogger()
	keeper := positions.NewKeeper(log, 1)
	riskMgr := risk.NewManager(log, keeper, []risk.Cfg{cfg})
	sender := &recordingSender{}
	return orders.NewManager(log, sender, riskMgr, 1, 1), sender
}

func wideOpen() risk.Cfg {
	return risk.Cfg{
		MaxOrderSize: 1000,
		MaxPosition:  1000,
		MaxLoss:      num.MustDecimalFromString("-1000000"),
	}
}

func TestMoveOrdersSendsBothSides(t *testing.T) {
	m, sender := newManager(t, wideOpen())

	m.MoveOrders(0, 99, 101, 5)

	require.Len(t, sender.requests, 2)
	bid, ask := sender.requests[0], sender.requests[1]
	assert.Equal(t, types.ClientRequestNew, bid.Kind)
	assert.Equal(t, types.OrderID(1), bid.OrderID, "client order ids start at 1")
	assert.Equal(t, types.SideBuy, bid.Side)
	assert.Equal(t, types.Price(99), bid.Price)
	assert.Equal(t, types.OrderID(2), ask.OrderID)
	assert.Equal(t, types.SideSell, ask.Side)

	assert.Equal(t, orders.StatePendingNew, m.Order(0, types.SideBuy).State)
	assert.Equal(t, orders.StatePendingNew, m.Order(0, types.SideSell).State)

	// pending slots do not re-send
	m.MoveOrders(0, 98, 102, 5)
	assert.Len(t, sender.requests, 2)
}

func TestLiveOrderAtWrongPriceIsCancelled(t *testing.T) {
	m, sender := newManager(t, wideOpen())

	m.MoveOrders(0, 99, types.PriceInvalid, 5)
	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseAccepted, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 99, LeavesQty: 5,
	})
	require.Equal(t, orders.StateLive, m.Order(0, types.SideBuy).State)

	// same price: nothing to do
	m.MoveOrders(0, 99, types.PriceInvalid, 5)
	assert.Len(t, sender.requests, 1)

	// new target: cancel and wait
	m.MoveOrders(0, 98, types.PriceInvalid, 5)
	require.Len(t, sender.requests, 2)
	assert.Equal(t, types.ClientRequestCancel, sender.requests[1].Kind)
	assert.Equal(t, types.OrderID(1), sender.requests[1].OrderID)
	assert.Equal(t, orders.StatePendingCancel, m.Order(0, types.SideBuy).State)

	// CANCELED frees the slot and the next move replaces at the new price
	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseCanceled, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 99,
	})
	m.MoveOrders(0, 98, types.PriceInvalid, 5)
	require.Len(t, sender.requests, 3)
	assert.Equal(t, types.OrderID(2), sender.requests[2].OrderID)
	assert.Equal(t, types.Price(98), sender.requests[2].Price)
}

func TestFillTransitions(t *testing.T) {
	m, _ := newManager(t, wideOpen())

	m.MoveOrders(0, 99, types.PriceInvalid, 5)
	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseAccepted, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 99, LeavesQty: 5,
	})

	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseFilled, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 99, ExecQty: 2, LeavesQty: 3,
	})
	assert.Equal(t, orders.StateLive, m.Order(0, types.SideBuy).State)
	assert.Equal(t, types.Qty(3), m.Order(0, types.SideBuy).Qty)

	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseFilled, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 99, ExecQty: 3, LeavesQty: 0,
	})
	assert.Equal(t, orders.StateDead, m.Order(0, types.SideBuy).State)
}

func TestRiskBlockKeepsSlotDead(t *testing.T) {
	m, sender := newManager(t, risk.Cfg{
		MaxOrderSize: 10,
		MaxPosition:  1000,
		MaxLoss:      num.MustDecimalFromString("-1000000"),
	})

	m.MoveOrders(0, 100, types.PriceInvalid, 11)

	assert.Empty(t, sender.requests, "blocked order never reaches the gateway")
	assert.Equal(t, orders.StateInvalid, m.Order(0, types.SideBuy).State)
}

func TestCancelRejectedLeavesStateUntouched(t *testing.T) {
	m, _ := newManager(t, wideOpen())

	m.MoveOrders(0, 99, types.PriceInvalid, 5)
	before := *m.Order(0, types.SideBuy)

	m.OnOrderUpdate(types.ClientResponse{
		Kind: types.ClientResponseCancelRejected, ClientID: 1, TickerID: 0,
		ClientOrderID: 999, MarketOrderID: types.OrderIDInvalid,
		Side: types.SideInvalid, Price: types.PriceInvalid,
		ExecQty: types.QtyInvalid, LeavesQty: types.QtyInvalid,
	})
	assert.Equal(t, before, *m.Order(0, types.SideBuy))
}
