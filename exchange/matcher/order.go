package matcher

import (
	"fmt"

	"github.com/tachyontrading/tachyon/types"
)

// Order is a resting order in the exchange book. Orders live in a pool for
// the lifetime of the book and link into a circular FIFO within their price
// level, so FIFO position equals priority order.
type Order struct {
	TickerID      types.TickerID
	ClientID      types.ClientID
	ClientOrderID types.OrderID
	MarketOrderID types.OrderID
	Side          types.Side
	Price         types.Price
	Qty           types.Qty
	Priority      types.Priority

	prev, next *Order
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{moid:%s cid:%d coid:%s %s %s@%s prio:%s}",
		o.MarketOrderID, o.ClientID, o.ClientOrderID, o.Side, o.Qty, o.Price, o.Priority)
}

// ordersAtPrice is one price level: the head of the circular FIFO of orders
// at that price, itself a node in the circular best-first list of levels on
// its side (bids descending, asks ascending).
type ordersAtPrice struct {
	side  types.Side
	price types.Price
	first *Order

	prev, next *ordersAtPrice
}

func (l *ordersAtPrice) String() string {
	return fmt.Sprintf("Level{%s %s}", l.side, l.price)
}

// tail returns the last order in the level's FIFO.
func (l *ordersAtPrice) tail() *Order {
	return l.first.prev
}

// aggQty sums the quantity of every order resting at this level.
func (l *ordersAtPrice) aggQty() types.Qty {
	qty := l.first.Qty
	for o := l.first.next; o != l.first; o = o.next {
		qty += o.Qty
	}
	return qty
}
