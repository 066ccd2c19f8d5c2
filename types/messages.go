package types

import "fmt"

// ClientRequestKind discriminates inbound order entry records.
type ClientRequestKind uint8

const (
	ClientRequestInvalid ClientRequestKind = iota
	ClientRequestNew
	ClientRequestCancel
)

func (k ClientRequestKind) String() string {
	switch k {
	case ClientRequestNew:
		return "NEW"
	case ClientRequestCancel:
		return "CANCEL"
	default:
		return "INVALID"
	}
}

// ClientResponseKind discriminates outbound order entry records.
type ClientResponseKind uint8

const (
	ClientResponseInvalid ClientResponseKind = iota
	ClientResponseAccepted
	ClientResponseCanceled
	ClientResponseFilled
	ClientResponseCancelRejected
)

func (k ClientResponseKind) String() string {
	switch k {
	case ClientResponseAccepted:
		return "ACCEPTED"
	case ClientResponseCanceled:
		return "CANCELED"
	case ClientResponseFilled:
		return "FILLED"
	case ClientResponseCancelRejected:
		return "CANCEL_REJECTED"
	default:
		return "INVALID"
	}
}

// MarketUpdateKind discriminates market data records.
type MarketUpdateKind uint8

const (
	MarketUpdateInvalid MarketUpdateKind = iota
	MarketUpdateClear
	MarketUpdateAdd
	MarketUpdateModify
	MarketUpdateCancel
	MarketUpdateTrade
	MarketUpdateSnapshotStart
	MarketUpdateSnapshotEnd
)

func (k MarketUpdateKind) String() string {
	switch k {
	case MarketUpdateClear:
		return "CLEAR"
	case MarketUpdateAdd:
		return "ADD"
	case MarketUpdateModify:
		return "MODIFY"
	case MarketUpdateCancel:
		return "CANCEL"
	case MarketUpdateTrade:
		return "TRADE"
	case MarketUpdateSnapshotStart:
		return "SNAPSHOT_START"
	case MarketUpdateSnapshotEnd:
		return "SNAPSHOT_END"
	default:
		return "INVALID"
	}
}

// ClientRequest is an order entry request as sent by a trading client.
type ClientRequest struct {
	Kind     ClientRequestKind
	ClientID ClientID
	TickerID TickerID
	OrderID  OrderID
	Side     Side
	Price    Price
	Qty      Qty
}

func (r ClientRequest) String() string {
	return fmt.Sprintf("ClientRequest{%s cid:%d ticker:%d oid:%s side:%s px:%s qty:%s}",
		r.Kind, r.ClientID, r.TickerID, r.OrderID, r.Side, r.Price, r.Qty)
}

// ClientResponse is the exchange's answer to a ClientRequest. One request
// yields exactly one terminal response kind, with zero or more FILLED
// responses in between.
type ClientResponse struct {
	Kind          ClientResponseKind
	ClientID      ClientID
	TickerID      TickerID
	ClientOrderID OrderID
	MarketOrderID OrderID
	Side          Side
	Price         Price
	ExecQty       Qty
	LeavesQty     Qty
}

func (r ClientResponse) String() string {
	return fmt.Sprintf("ClientResponse{%s cid:%d ticker:%d coid:%s moid:%s side:%s px:%s exec:%s leaves:%s}",
		r.Kind, r.ClientID, r.TickerID, r.ClientOrderID, r.MarketOrderID, r.Side, r.Price, r.ExecQty, r.LeavesQty)
}

// MarketUpdate is a single market data record.
type MarketUpdate struct {
	Kind     MarketUpdateKind
	OrderID  OrderID
	TickerID TickerID
	Side     Side
	Price    Price
	Qty      Qty
	Priority Priority
}

func (u MarketUpdate) String() string {
	return fmt.Sprintf("MarketUpdate{%s oid:%s ticker:%d side:%s px:%s qty:%s prio:%s}",
		u.Kind, u.OrderID, u.TickerID, u.Side, u.Price, u.Qty, u.Priority)
}

// FramedClientRequest pairs a request with its session sequence number.
type FramedClientRequest struct {
	Seq     uint64
	Request ClientRequest
}

// FramedClientResponse pairs a response with its session sequence number.
type FramedClientResponse struct {
	Seq      uint64
	Response ClientResponse
}

// FramedMarketUpdate pairs a market update with its stream sequence number.
type FramedMarketUpdate struct {
	Seq    uint64
	Update MarketUpdate
}

func (f FramedMarketUpdate) String() string {
	return fmt.Sprintf("Framed{seq:%d %s}", f.Seq, f.Update)
}

// BBO is the best bid and offer with quantities aggregated across every
// order resting at the touch.
type BBO struct {
	BidPrice Price
	BidQty   Qty
	AskPrice Price
	AskQty   Qty
}

// NewBBO returns an empty two-sided quote.
func NewBBO() BBO {
	return BBO{
		BidPrice: PriceInvalid,
		AskPrice: PriceInvalid,
		BidQty:   QtyInvalid,
		AskQty:   QtyInvalid,
	}
}

// TwoSided reports whether both sides of the quote are populated.
func (b BBO) TwoSided() bool {
	return b.BidPrice != PriceInvalid && b.AskPrice != PriceInvalid
}

func (b BBO) String() string {
	return fmt.Sprintf("BBO{%sx%s %sx%s}", b.BidQty, b.BidPrice, b.AskPrice, b.AskQty)
}
