// Package book mirrors the exchange limit order book on the trading side
// from the market data stream. It keeps the same price-time structure as the
// exchange book but knows nothing about client identities; orders are keyed
// by market order id only.
package book

import (
	"github.com/tachyontrading/tachyon/libs/pool"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

// Order is one mirrored resting order, an intrusive node in its price
// level's circular FIFO.
type Order struct {
	OrderID  types.OrderID
	Side     types.Side
	Price    types.Price
	Qty      types.Qty
	Priority types.Priority

	prev, next *Order
}

// ordersAtPrice is one price level, an intrusive node in its side's circular
// best-first list.
type ordersAtPrice struct {
	side  types.Side
	price types.Price
	first *Order

	prev, next *ordersAtPrice
}

func (l *ordersAtPrice) tail() *Order {
	return l.first.prev
}

// Listener receives the callbacks a book raises while applying updates. The
// trade engine is the only implementation on the live path.
type Listener interface {
	// OnOrderBookUpdate fires after a structural change, with the BBO
	// already recomputed for the touched side.
	OnOrderBookUpdate(tickerID types.TickerID, price types.Price, side types.Side, bbo types.BBO)
	// OnTradeUpdate fires on a TRADE record, which never changes the book.
	OnTradeUpdate(update types.MarketUpdate, bbo types.BBO)
}

// MarketOrderBook is the mirrored book for one ticker. The trade engine
// goroutine is the sole mutator; nothing here is safe for concurrent use.
type MarketOrderBook struct {
	log      *logging.Logger
	tickerID types.TickerID
	listener Listener

	bids *ordersAtPrice
	asks *ordersAtPrice

	levels     map[types.Price]*ordersAtPrice
	oidToOrder map[types.OrderID]*Order

	orderPool *pool.Pool[Order]
	levelPool *pool.Pool[ordersAtPrice]

	bbo types.BBO
}

// NewMarketOrderBook allocates the mirrored book and its pools for one ticker.
func NewMarketOrderBook(log *logging.Logger, cfg Config, tickerID types.TickerID, listener Listener) *MarketOrderBook {
	return &MarketOrderBook{
		log:        log.Named(namedLogger),
		tickerID:   tickerID,
		listener:   listener,
		levels:     make(map[types.Price]*ordersAtPrice, cfg.MaxPriceLevels),
		oidToOrder: make(map[types.OrderID]*Order, cfg.MaxOrderIDs),
		orderPool:  pool.New[Order](cfg.MaxOrderIDs),
		levelPool:  pool.New[ordersAtPrice](cfg.MaxPriceLevels),
		bbo:        types.NewBBO(),
	}
}

// BBO returns the current best bid and offer with aggregated touch quantities.
func (b *MarketOrderBook) BBO() types.BBO {
	return b.bbo
}

// OnMarketUpdate applies one market data record to the mirrored book.
func (b *MarketOrderBook) OnMarketUpdate(update types.MarketUpdate) {
	if b.log.IsDebug() {
		b.log.Debug("applying market update", logging.String("update", update.String()))
	}

	switch update.Kind {
	case types.MarketUpdateAdd:
		o, err := b.orderPool.Acquire()
		if err != nil {
			b.log.Panic("order pool exhausted",
				logging.Uint64("ticker", uint64(b.tickerID)),
				logging.Error(err))
		}
		*o = Order{
			OrderID:  update.OrderID,
			Side:     update.Side,
			Price:    update.Price,
			Qty:      update.Qty,
			Priority: update.Priority,
		}
		b.addOrder(o)
	case types.MarketUpdateModify:
		o := b.oidToOrder[update.OrderID]
		if o == nil {
			b.log.Panic("modify for unknown order",
				logging.String("update", update.String()))
		}
		o.Qty = update.Qty
	case types.MarketUpdateCancel:
		o := b.oidToOrder[update.OrderID]
		if o == nil {
			b.log.Panic("cancel for unknown order",
				logging.String("update", update.String()))
		}
		b.removeOrder(o)
	case types.MarketUpdateTrade:
		// trades never change the book; the matching engine's MODIFY or
		// CANCEL for the resting side arrives as its own record
		b.listener.OnTradeUpdate(update, b.bbo)
		return
	case types.MarketUpdateClear:
		b.clear()
	case types.MarketUpdateSnapshotStart, types.MarketUpdateSnapshotEnd:
		return
	default:
		b.log.Panic("unknown market update kind on live path",
			logging.Uint8("kind", uint8(update.Kind)))
	}

	b.updateBBO(update.Side == types.SideBuy, update.Side == types.SideSell)
	b.listener.OnOrderBookUpdate(b.tickerID, update.Price, update.Side, b.bbo)
}

// clear dismantles both sides and returns every order and level to its pool.
func (b *MarketOrderBook) clear() {
	for _, o := range b.oidToOrder {
		o.prev, o.next = nil, nil
		if err := b.orderPool.Release(o); err != nil {
			b.log.Panic("order pool release failed", logging.Error(err))
		}
	}
	for _, l := range b.levels {
		l.prev, l.next = nil, nil
		l.first = nil
		if err := b.levelPool.Release(l); err != nil {
			b.log.Panic("price level pool release failed", logging.Error(err))
		}
	}
	b.oidToOrder = make(map[types.OrderID]*Order, len(b.oidToOrder))
	b.levels = make(map[types.Price]*ordersAtPrice, len(b.levels))
	b.bids, b.asks = nil, nil
	b.updateBBO(true, true)
}

// updateBBO recomputes the touched side of the quote, aggregating qty over
// the best level's FIFO.
func (b *MarketOrderBook) updateBBO(updateBid, updateAsk bool) {
	if updateBid {
		if b.bids != nil {
			b.bbo.BidPrice = b.bids.price
			b.bbo.BidQty = b.bids.aggQty()
		} else {
			b.bbo.BidPrice = types.PriceInvalid
			b.bbo.BidQty = types.QtyInvalid
		}
	}
	if updateAsk {
		if b.asks != nil {
			b.bbo.AskPrice = b.asks.price
			b.bbo.AskQty = b.asks.aggQty()
		} else {
			b.bbo.AskPrice = types.PriceInvalid
			b.bbo.AskQty = types.QtyInvalid
		}
	}
}

func (l *ordersAtPrice) aggQty() types.Qty {
	qty := l.first.Qty
	for o := l.first.next; o != l.first; o = o.next {
		qty += o.Qty
	}
	return qty
}

func (b *MarketOrderBook) addOrder(o *Order) {
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
	b.oidToOrder[o.OrderID] = o
}

func (b *MarketOrderBook) removeOrder(o *Order) {
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

	delete(b.oidToOrder, o.OrderID)
	if err := b.orderPool.Release(o); err != nil {
		b.log.Panic("order pool release failed", logging.Error(err))
	}
}

func (b *MarketOrderBook) insertLevel(l *ordersAtPrice) {
	head := b.bestFor(l.side)
	if head == nil {
		l.prev, l.next = l, l
		b.setBest(l.side, l)
		return
	}
	cur := head
	for {
		if worsePrice(l.side, cur.price, l.price) {
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
			l.prev = head.prev
			l.next = head
			head.prev.next = l
			head.prev = l
			return
		}
	}
}

func (b *MarketOrderBook) removeLevel(l *ordersAtPrice) {
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

func (b *MarketOrderBook) bestFor(side types.Side) *ordersAtPrice {
	if side == types.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *MarketOrderBook) setBest(side types.Side, l *ordersAtPrice) {
	if side == types.SideBuy {
		b.bids = l
	} else {
		b.asks = l
	}
}

func worsePrice(side types.Side, a, b types.Price) bool {
	if side == types.SideBuy {
		return a < b
	}
	return a > b
}

// OrderByMarketID returns the mirrored order with the given market order id.
func (b *MarketOrderBook) OrderByMarketID(moid types.OrderID) *Order {
	return b.oidToOrder[moid]
}

// PoolInUse reports acquired order and price-level slots. Safe to call from
// a metrics sampler while the owning engine runs.
func (b *MarketOrderBook) PoolInUse() (orders, levels int) {
	return b.orderPool.InUse(), b.levelPool.InUse()
}

// EachOrder visits every mirrored order, best level first, FIFO within level.
func (b *MarketOrderBook) EachOrder(f func(*Order)) {
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
