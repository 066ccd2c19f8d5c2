package matcher

import (
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/libs/pool"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

var (
	ErrLevelsNotSorted     = errors.New("price levels not sorted best to worst")
	ErrBookCrossed         = errors.New("best bid crossed with best ask")
	ErrPriorityNotFIFO     = errors.New("priorities within level not strictly increasing")
	ErrZeroQtyOrder        = errors.New("live order with zero qty")
	ErrLookupInconsistency = errors.New("order not reachable through lookups")
)

// Sink receives the responses and market updates a book generates. The
// matching engine is the only implementation on the live path; tests use
// recording fakes.
type Sink interface {
	SendClientResponse(types.ClientResponse)
	SendMarketUpdate(types.MarketUpdate)
}

// OrderBook is the limit order book for one ticker. The matching engine
// goroutine is the sole mutator; nothing here is safe for concurrent use.
type OrderBook struct {
	log      *logging.Logger
	tickerID types.TickerID
	sink     Sink

	bids *ordersAtPrice // best bid, nil when side empty
	asks *ordersAtPrice // best ask, nil when side empty

	levels     map[types.Price]*ordersAtPrice
	oidToOrder map[types.OrderID]*Order
	cidOrders  []map[types.OrderID]*Order

	orderPool *pool.Pool[Order]
	levelPool *pool.Pool[ordersAtPrice]

	nextMarketOrderID types.OrderID
}

// NewOrderBook allocates the book and its pools for one ticker.
func NewOrderBook(log *logging.Logger, cfg Config, tickerID types.TickerID, sink Sink) *OrderBook {
	return &OrderBook{
		log:               log,
		tickerID:          tickerID,
		sink:              sink,
		levels:            make(map[types.Price]*ordersAtPrice, cfg.MaxPriceLevels),
		oidToOrder:        make(map[types.OrderID]*Order, cfg.MaxOrderIDs),
		cidOrders:         make([]map[types.OrderID]*Order, types.MaxClients),
		orderPool:         pool.New[Order](cfg.MaxOrderIDs),
		levelPool:         pool.New[ordersAtPrice](cfg.MaxPriceLevels),
		nextMarketOrderID: 1,
	}
}

// Add runs the aggressive order through the match loop and rests any
// residual. The ACCEPTED response always precedes fill events.
func (b *OrderBook) Add(clientID types.ClientID, clientOrderID types.OrderID, side types.Side, price types.Price, qty types.Qty) {
	moid := b.nextMarketOrderID
	b.nextMarketOrderID++

	b.sink.SendClientResponse(types.ClientResponse{
		Kind:          types.ClientResponseAccepted,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: moid,
		Side:          side,
		Price:         price,
		ExecQty:       0,
		LeavesQty:     qty,
	})

	leaves := b.matchLoop(clientID, clientOrderID, side, price, qty, moid)
	if leaves == 0 {
		return
	}

	priority := b.nextPriority(price)
	o, err := b.orderPool.Acquire()
	if err != nil {
		b.log.Panic("order pool exhausted",
			logging.Uint64("ticker", uint64(b.tickerID)),
			logging.Error(err))
	}
	*o = Order{
		TickerID:      b.tickerID,
		ClientID:      clientID,
		ClientOrderID: clientOrderID,
		MarketOrderID: moid,
		Side:          side,
		Price:         price,
		Qty:           leaves,
		Priority:      priority,
	}
	b.addOrder(o)

	b.sink.SendMarketUpdate(types.MarketUpdate{
		Kind:     types.MarketUpdateAdd,
		OrderID:  moid,
		TickerID: b.tickerID,
		Side:     side,
		Price:    price,
		Qty:      leaves,
		Priority: priority,
	})
}

// Cancel removes a live order looked up by (client, client order id). An
// unknown order yields CANCEL_REJECTED and no market update.
func (b *OrderBook) Cancel(clientID types.ClientID, orderID types.OrderID) {
	var o *Order
	if int(clientID) < len(b.cidOrders) {
		if m := b.cidOrders[clientID]; m != nil {
			o = m[orderID]
		}
	}

	if o == nil {
		b.sink.SendClientResponse(types.ClientResponse{
			Kind:          types.ClientResponseCancelRejected,
			ClientID:      clientID,
			TickerID:      b.tickerID,
			ClientOrderID: orderID,
			MarketOrderID: types.OrderIDInvalid,
			Side:          types.SideInvalid,
			Price:         types.PriceInvalid,
			ExecQty:       types.QtyInvalid,
			LeavesQty:     types.QtyInvalid,
		})
		return
	}

	resp := types.ClientResponse{
		Kind:          types.ClientResponseCanceled,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: orderID,
		MarketOrderID: o.MarketOrderID,
		Side:          o.Side,
		Price:         o.Price,
		ExecQty:       types.QtyInvalid,
		LeavesQty:     o.Qty,
	}
	update := types.MarketUpdate{
		Kind:     types.MarketUpdateCancel,
		OrderID:  o.MarketOrderID,
		TickerID: b.tickerID,
		Side:     o.Side,
		Price:    o.Price,
		Qty:      0,
		Priority: o.Priority,
	}
	b.removeOrder(o)

	b.sink.SendClientResponse(resp)
	b.sink.SendMarketUpdate(update)
}

// matchLoop crosses the aggressor against the opposite side while prices are
// compatible, FIFO within each level. Returns the unmatched remainder.
func (b *OrderBook) matchLoop(clientID types.ClientID, clientOrderID types.OrderID, side types.Side, price types.Price, qty types.Qty, moid types.OrderID) types.Qty {
	leaves := qty
	switch side {
	case types.SideBuy:
		for leaves > 0 && b.asks != nil && price >= b.asks.price {
			leaves = b.match(clientID, clientOrderID, side, moid, b.asks.first, leaves)
		}
	case types.SideSell:
		for leaves > 0 && b.bids != nil && price <= b.bids.price {
			leaves = b.match(clientID, clientOrderID, side, moid, b.bids.first, leaves)
		}
	default:
		b.log.Panic("match loop on invalid side", logging.Int8("side", int8(side)))
	}
	return leaves
}

// match fills the aggressor against one resting order at the passive price.
func (b *OrderBook) match(clientID types.ClientID, clientOrderID types.OrderID, side types.Side, moid types.OrderID, resting *Order, leaves types.Qty) types.Qty {
	restingQty := resting.Qty
	fill := leaves
	if restingQty < fill {
		fill = restingQty
	}
	leaves -= fill
	resting.Qty -= fill

	b.sink.SendClientResponse(types.ClientResponse{
		Kind:          types.ClientResponseFilled,
		ClientID:      clientID,
		TickerID:      b.tickerID,
		ClientOrderID: clientOrderID,
		MarketOrderID: moid,
		Side:          side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     leaves,
	})
	b.sink.SendClientResponse(types.ClientResponse{
		Kind:          types.ClientResponseFilled,
		ClientID:      resting.ClientID,
		TickerID:      b.tickerID,
		ClientOrderID: resting.ClientOrderID,
		MarketOrderID: resting.MarketOrderID,
		Side:          resting.Side,
		Price:         resting.Price,
		ExecQty:       fill,
		LeavesQty:     resting.Qty,
	})
	b.sink.SendMarketUpdate(types.MarketUpdate{
		Kind:     types.MarketUpdateTrade,
		OrderID:  types.OrderIDInvalid,
		TickerID: b.tickerID,
		Side:     side,
		Price:    resting.Price,
		Qty:      fill,
		Priority: types.PriorityInvalid,
	})

	if resting.Qty == 0 {
		b.sink.SendMarketUpdate(types.MarketUpdate{
			Kind:     types.MarketUpdateCancel,
			OrderID:  resting.MarketOrderID,
			TickerID: b.tickerID,
			Side:     resting.Side,
			Price:    resting.Price,
			Qty:      restingQty,
			Priority: types.PriorityInvalid,
		})
		b.removeOrder(resting)
	} else {
		b.sink.SendMarketUpdate(types.MarketUpdate{
			Kind:     types.MarketUpdateModify,
			OrderID:  resting.MarketOrderID,
			TickerID: b.tickerID,
			Side:     resting.Side,
			Price:    resting.Price,
			Qty:      resting.Qty,
			Priority: resting.Priority,
		})
	}
	return leaves
}

// nextPriority is one past the tail of the level's FIFO, or 1 for a fresh level.
func (b *OrderBook) nextPriority(price types.Price) types.Priority {
	if l, ok := b.levels[price]; ok {
		return l.tail().Priority + 1
	}
	return 1
}

func (b *OrderBook) addOrder(o *Order) {
	l, ok := b.levels[o.Price]
	if !ok {
		var err error
		l, err = b.levelPool.Acquire()
		if err != nil {
			b.log.Panic("price level pool exhausted",
				logging.Uint64("ticker", uint64(b.tickerID)),
				logging.Error(err))
		}
		*l = ordersAtPrice{side: o.Side, price: o.Price, first: o}
		o.prev, o.next = o, o
		b.levels[o.Price] = l
		b.insertLevel(l)
	} else {
		t := l.tail()
		o.prev = t
		o.next = l.first
		t.next = o
		l.first.prev = o
	}

	b.oidToOrder[o.MarketOrderID] = o
	if b.cidOrders[o.ClientID] == nil {
		b.cidOrders[o.ClientID] = make(map[types.OrderID]*Order)
	}
	b.cidOrders[o.ClientID][o.ClientOrderID] = o
}

func (b *OrderBook) removeOrder(o *Order) {
	l := b.levels[o.Price]
	if o.next == o {
		l.first = nil
		b.removeLevel(l)
	} else {
		o.prev.next = o.next
		o.next.prev = o.prev
		if l.first == o {
			l.first = o.next
		}
	}
	o.prev, o.next = nil, nil

	delete(b.oidToOrder, o.MarketOrderID)
	delete(b.cidOrders[o.ClientID], o.ClientOrderID)
	if err := b.orderPool.Release(o); err != nil {
		b.log.Panic("order pool release failed", logging.Error(err))
	}
}

// insertLevel walks from the best of side toward worse prices until the
// correct position is found, updating the head pointer when the new level
// becomes best.
func (b *OrderBook) insertLevel(l *ordersAtPrice) {
	head := b.bestFor(l.side)
	if head == nil {
		l.prev, l.next = l, l
		b.setBest(l.side, l)
		return
	}
	cur := head
	for {
		if worsePrice(l.side, cur.price, l.price) {
			// l slots in just before the first worse level.
			l.prev = cur.prev
			l.next = cur
			cur.prev.next = l
			cur.prev = l
			if cur == head {
				b.setBest(l.side, l)
			}
			return
		}
		cur = cur.next
		if cur == head {
			// wrapped: l is the worst level on the side.
			l.prev = head.prev
			l.next = head
			head.prev.next = l
			head.prev = l
			return
		}
	}
}

func (b *OrderBook) removeLevel(l *ordersAtPrice) {
	if l.next == l {
		b.setBest(l.side, nil)
	} else {
		l.prev.next = l.next
		l.next.prev = l.prev
		if b.bestFor(l.side) == l {
			b.setBest(l.side, l.next)
		}
	}
	l.prev, l.next = nil, nil
	delete(b.levels, l.price)
	if err := b.levelPool.Release(l); err != nil {
		b.log.Panic("price level pool release failed", logging.Error(err))
	}
}

func (b *OrderBook) bestFor(side types.Side) *ordersAtPrice {
	if side == types.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) setBest(side types.Side, l *ordersAtPrice) {
	if side == types.SideBuy {
		b.bids = l
	} else {
		b.asks = l
	}
}

// worsePrice reports whether a is strictly worse than b on the given side.
func worsePrice(side types.Side, a, b types.Price) bool {
	if side == types.SideBuy {
		return a < b
	}
	return a > b
}

// BestBid returns the best bid price, or PriceInvalid when the side is empty.
func (b *OrderBook) BestBid() types.Price {
	if b.bids == nil {
		return types.PriceInvalid
	}
	return b.bids.price
}

// BestAsk returns the best ask price, or PriceInvalid when the side is empty.
func (b *OrderBook) BestAsk() types.Price {
	if b.asks == nil {
		return types.PriceInvalid
	}
	return b.asks.price
}

// OrderByMarketID returns the live order with the given market order id.
func (b *OrderBook) OrderByMarketID(moid types.OrderID) *Order {
	return b.oidToOrder[moid]
}

// EachOrder visits every live order, best level first, FIFO within level.
func (b *OrderBook) EachOrder(f func(*Order)) {
	for _, head := range []*ordersAtPrice{b.bids, b.asks} {
		if head == nil {
			continue
		}
		l := head
		for {
			o := l.first
			for {
				f(o)
				o = o.next
				if o == l.first {
					break
				}
			}
			l = l.next
			if l == head {
				break
			}
		}
	}
}

// CheckInvariants verifies the structural invariants that must hold between
// operations. The engine treats a violation as fatal.
func (b *OrderBook) CheckInvariants() error {
	if b.bids != nil && b.asks != nil && b.bids.price >= b.asks.price {
		return ErrBookCrossed
	}
	for _, head := range []*ordersAtPrice{b.bids, b.asks} {
		if head == nil {
			continue
		}
		l := head
		for {
			if l.next != head && !worsePrice(l.side, l.next.price, l.price) {
				return ErrLevelsNotSorted
			}
			prio := types.Priority(0)
			o := l.first
			for {
				if o.Qty == 0 {
					return ErrZeroQtyOrder
				}
				if o.Priority <= prio {
					return ErrPriorityNotFIFO
				}
				prio = o.Priority
				if b.oidToOrder[o.MarketOrderID] != o {
					return ErrLookupInconsistency
				}
				if m := b.cidOrders[o.ClientID]; m == nil || m[o.ClientOrderID] != o {
					return ErrLookupInconsistency
				}
				o = o.next
				if o == l.first {
					break
				}
			}
			l = l.next
			if l == head {
				break
			}
		}
	}
	return nil
}
