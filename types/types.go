// Package types holds the identifiers and message records shared by the
// exchange and trading processes. Everything here is plain data; behaviour
// lives with the engines that own it.
package types

import (
	"fmt"
	"math"
)

type (
	// OrderID identifies an order. Client order ids are client-local and
	// monotonic; market order ids are assigned by the matching engine,
	// ticker-local and monotonic.
	OrderID uint64
	// TickerID is a small bounded instrument index.
	TickerID uint64
	// ClientID is a small bounded participant index.
	ClientID uint64
	// Priority orders arrivals within a single price level.
	Priority uint64
	// Qty is a quantity in units.
	Qty uint64
	// Price is a signed price in ticks.
	Price int64
)

// Sentinel values, distinct from any legal value.
const (
	OrderIDInvalid  OrderID  = math.MaxUint64
	TickerIDInvalid TickerID = math.MaxUint64
	ClientIDInvalid ClientID = math.MaxUint64
	PriorityInvalid Priority = math.MaxUint64
	QtyInvalid      Qty      = math.MaxUint64
	PriceInvalid    Price    = math.MaxInt64
)

// Capacity limits. Pools and lookup arrays are sized from these at startup;
// exceeding them at runtime is fatal.
const (
	MaxTickers      = 8
	MaxClients      = 256
	MaxOrderIDs     = 1024 * 1024
	MaxPriceLevels  = 256
	MaxClientOrders = 256 * 1024
	MaxQueuedEvents = 256 * 1024
)

// Side of the book an order rests on or aggresses into.
type Side int8

const (
	SideInvalid Side = 0
	SideBuy     Side = 1
	SideSell    Side = -1
)

// Value maps BUY to +1 and SELL to -1 for signed position arithmetic.
func (s Side) Value() int64 {
	return int64(s)
}

// Index maps BUY to 0 and SELL to 1 for per-side array indexing.
func (s Side) Index() int {
	if s == SideSell {
		return 1
	}
	return 0
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideInvalid
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "INVALID"
	}
}

func (id OrderID) String() string {
	if id == OrderIDInvalid {
		return "INVALID"
	}
	return fmt.Sprintf("%d", uint64(id))
}

func (p Price) String() string {
	if p == PriceInvalid {
		return "INVALID"
	}
	return fmt.Sprintf("%d", int64(p))
}

func (q Qty) String() string {
	if q == QtyInvalid {
		return "INVALID"
	}
	return fmt.Sprintf("%d", uint64(q))
}

func (p Priority) String() string {
	if p == PriorityInvalid {
		return "INVALID"
	}
	return fmt.Sprintf("%d", uint64(p))
}
