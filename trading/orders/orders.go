// Package orders manages the strategies' working orders: at most one per
// (ticker, side), moved by cancel-and-replace and driven through its states
// by the exchange's responses.
package orders

import (
	"fmt"

	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "orders"

// Sender carries client requests toward the gateway. The trade engine is
// the live implementation.
type Sender interface {
	SendClientRequest(types.ClientRequest)
}

// State of one managed order.
type State uint8

const (
	StateInvalid State = iota
	StatePendingNew
	StateLive
	StatePendingCancel
	StateDead
)

func (s State) String() string {
	switch s {
	case StatePendingNew:
		return "PENDING_NEW"
	case StateLive:
		return "LIVE"
	case StatePendingCancel:
		return "PENDING_CANCEL"
	case StateDead:
		return "DEAD"
	default:
		return "INVALID"
	}
}

// Order is one managed working order.
type Order struct {
	TickerID types.TickerID
	OrderID  types.OrderID
	Side     types.Side
	Price    types.Price
	Qty      types.Qty
	State    State
}

func (o Order) String() string {
	return fmt.Sprintf("OMOrder{%s ticker:%d oid:%s side:%s px:%s qty:%s}",
		o.State, o.TickerID, o.OrderID, o.Side, o.Price, o.Qty)
}

// Manager owns one order slot per (ticker, side). The trade engine
// goroutine is the sole caller.
type Manager struct {
	log      *logging.Logger
	sender   Sender
	risk     *risk.Manager
	clientID types.ClientID

	orders      [][2]Order
	nextOrderID types.OrderID
}

// NewManager wires the order slots to their risk gate and request sender.
func NewManager(log *logging.Logger, sender Sender, riskMgr *risk.Manager, clientID types.ClientID, numTickers uint64) *Manager {
	return &Manager{
		log:         log.Named(namedLogger),
		sender:      sender,
		risk:        riskMgr,
		clientID:    clientID,
		orders:      make([][2]Order, numTickers),
		nextOrderID: 1,
	}
}

// Order returns the managed order slot for one (ticker, side).
func (m *Manager) Order(tickerID types.TickerID, side types.Side) *Order {
	if uint64(tickerID) >= uint64(len(m.orders)) {
		m.log.Panic("order slot for unknown ticker",
			logging.Uint64("ticker", uint64(tickerID)))
	}
	return &m.orders[tickerID][side.Index()]
}

// OnOrderUpdate advances the managed order addressed by a response.
func (m *Manager) OnOrderUpdate(resp types.ClientResponse) {
	if m.log.IsDebug() {
		m.log.Debug("order update", logging.String("response", resp.String()))
	}
	switch resp.Kind {
	case types.ClientResponseCancelRejected, types.ClientResponseInvalid:
		return
	}

	order := m.Order(resp.TickerID, resp.Side)
	switch resp.Kind {
	case types.ClientResponseAccepted:
		order.State = StateLive
	case types.ClientResponseCanceled:
		order.State = StateDead
	case types.ClientResponseFilled:
		order.Qty = resp.LeavesQty
		if order.Qty == 0 {
			order.State = StateDead
		}
	}
}

// MoveOrders steers both sides of one ticker toward the target prices with
// the given clip size.
func (m *Manager) MoveOrders(tickerID types.TickerID, bidPrice, askPrice types.Price, clip types.Qty) {
	m.moveOrder(m.Order(tickerID, types.SideBuy), tickerID, bidPrice, types.SideBuy, clip)
	m.moveOrder(m.Order(tickerID, types.SideSell), tickerID, askPrice, types.SideSell, clip)
}

// moveOrder converges one slot on the target price: a live order at the
// wrong price is cancelled, a dead slot with a valid target is risk-checked
// and replaced. Pending states wait for the exchange.
func (m *Manager) moveOrder(order *Order, tickerID types.TickerID, price types.Price, side types.Side, qty types.Qty) {
	switch order.State {
	case StateLive:
		if order.Price != price {
			m.cancelOrder(order)
		}
	case StateInvalid, StateDead:
		if price == types.PriceInvalid {
			return
		}
		if result := m.risk.Check(tickerID, side, qty); result != risk.CheckAllowed {
			m.log.Warn("order blocked by risk",
				logging.Uint64("ticker", uint64(tickerID)),
				logging.String("side", side.String()),
				logging.Uint64("qty", uint64(qty)),
				logging.String("result", result.String()))
			return
		}
		m.newOrder(order, tickerID, price, side, qty)
	case StatePendingNew, StatePendingCancel:
	}
}

func (m *Manager) newOrder(order *Order, tickerID types.TickerID, price types.Price, side types.Side, qty types.Qty) {
	m.sender.SendClientRequest(types.ClientRequest{
		Kind:     types.ClientRequestNew,
		ClientID: m.clientID,
		TickerID: tickerID,
		OrderID:  m.nextOrderID,
		Side:     side,
		Price:    price,
		Qty:      qty,
	})
	*order = Order{
		TickerID: tickerID,
		OrderID:  m.nextOrderID,
		Side:     side,
		Price:    price,
		Qty:      qty,
		State:    StatePendingNew,
	}
	m.nextOrderID++
}

func (m *Manager) cancelOrder(order *Order) {
	m.sender.SendClientRequest(types.ClientRequest{
		Kind:     types.ClientRequestCancel,
		ClientID: m.clientID,
		TickerID: order.TickerID,
		OrderID:  order.OrderID,
		Side:     order.Side,
		Price:    order.Price,
		Qty:      order.Qty,
	})
	order.State = StatePendingCancel
}
