// Package wire implements the fixed-size packed binary layouts shared by the
// order entry protocol and both market data streams. All integers are
// little-endian; records carry no padding so the sizes below are exact.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/types"
)

// Record sizes in bytes.
const (
	ClientRequestSize  = 42
	ClientResponseSize = 58
	MarketUpdateSize   = 42

	FramedClientRequestSize  = 8 + ClientRequestSize
	FramedClientResponseSize = 8 + ClientResponseSize
	FramedMarketUpdateSize   = 8 + MarketUpdateSize
)

var ErrShortBuffer = errors.New("wire: short buffer")

// PutClientRequest encodes r into b, which must hold ClientRequestSize bytes.
func PutClientRequest(b []byte, r types.ClientRequest) error {
	if len(b) < ClientRequestSize {
		return ErrShortBuffer
	}
	b[0] = byte(r.Kind)
	binary.LittleEndian.PutUint64(b[1:], uint64(r.ClientID))
	binary.LittleEndian.PutUint64(b[9:], uint64(r.TickerID))
	binary.LittleEndian.PutUint64(b[17:], uint64(r.OrderID))
	b[25] = byte(r.Side)
	binary.LittleEndian.PutUint64(b[26:], uint64(r.Price))
	binary.LittleEndian.PutUint64(b[34:], uint64(r.Qty))
	return nil
}

// ClientRequestFromBytes decodes a record encoded by PutClientRequest.
func ClientRequestFromBytes(b []byte) (types.ClientRequest, error) {
	if len(b) < ClientRequestSize {
		return types.ClientRequest{}, ErrShortBuffer
	}
	return types.ClientRequest{
		Kind:     types.ClientRequestKind(b[0]),
		ClientID: types.ClientID(binary.LittleEndian.Uint64(b[1:])),
		TickerID: types.TickerID(binary.LittleEndian.Uint64(b[9:])),
		OrderID:  types.OrderID(binary.LittleEndian.Uint64(b[17:])),
		Side:     types.Side(int8(b[25])),
		Price:    types.Price(binary.LittleEndian.Uint64(b[26:])),
		Qty:      types.Qty(binary.LittleEndian.Uint64(b[34:])),
	}, nil
}

// PutClientResponse encodes r into b, which must hold ClientResponseSize bytes.
func PutClientResponse(b []byte, r types.ClientResponse) error {
	if len(b) < ClientResponseSize {
		return ErrShortBuffer
	}
	b[0] = byte(r.Kind)
	binary.LittleEndian.PutUint64(b[1:], uint64(r.ClientID))
	binary.LittleEndian.PutUint64(b[9:], uint64(r.TickerID))
	binary.LittleEndian.PutUint64(b[17:], uint64(r.ClientOrderID))
	binary.LittleEndian.PutUint64(b[25:], uint64(r.MarketOrderID))
	b[33] = byte(r.Side)
	binary.LittleEndian.PutUint64(b[34:], uint64(r.Price))
	binary.LittleEndian.PutUint64(b[42:], uint64(r.ExecQty))
	binary.LittleEndian.PutUint64(b[50:], uint64(r.LeavesQty))
	return nil
}

// ClientResponseFromBytes decodes a record encoded by PutClientResponse.
func ClientResponseFromBytes(b []byte) (types.ClientResponse, error) {
	if len(b) < ClientResponseSize {
		return types.ClientResponse{}, ErrShortBuffer
	}
	return types.ClientResponse{
		Kind:          types.ClientResponseKind(b[0]),
		ClientID:      types.ClientID(binary.LittleEndian.Uint64(b[1:])),
		TickerID:      types.TickerID(binary.LittleEndian.Uint64(b[9:])),
		ClientOrderID: types.OrderID(binary.LittleEndian.Uint64(b[17:])),
		MarketOrderID: types.OrderID(binary.LittleEndian.Uint64(b[25:])),
		Side:          types.Side(int8(b[33])),
		Price:         types.Price(binary.LittleEndian.Uint64(b[34:])),
		ExecQty:       types.Qty(binary.LittleEndian.Uint64(b[42:])),
		LeavesQty:     types.Qty(binary.LittleEndian.Uint64(b[50:])),
	}, nil
}

// PutMarketUpdate encodes u into b, which must hold MarketUpdateSize bytes.
func PutMarketUpdate(b []byte, u types.MarketUpdate) error {
	if len(b) < MarketUpdateSize {
		return ErrShortBuffer
	}
	b[0] = byte(u.Kind)
	binary.LittleEndian.PutUint64(b[1:], uint64(u.OrderID))
	binary.LittleEndian.PutUint64(b[9:], uint64(u.TickerID))
	b[17] = byte(u.Side)
	binary.LittleEndian.PutUint64(b[18:], uint64(u.Price))
	binary.LittleEndian.PutUint64(b[26:], uint64(u.Qty))
	binary.LittleEndian.PutUint64(b[34:], uint64(u.Priority))
	return nil
}

// MarketUpdateFromBytes decodes a record encoded by PutMarketUpdate.
func MarketUpdateFromBytes(b []byte) (types.MarketUpdate, error) {
	if len(b) < MarketUpdateSize {
		return types.MarketUpdate{}, ErrShortBuffer
	}
	return types.MarketUpdate{
		Kind:     types.MarketUpdateKind(b[0]),
		OrderID:  types.OrderID(binary.LittleEndian.Uint64(b[1:])),
		TickerID: types.TickerID(binary.LittleEndian.Uint64(b[9:])),
		Side:     types.Side(int8(b[17])),
		Price:    types.Price(binary.LittleEndian.Uint64(b[18:])),
		Qty:      types.Qty(binary.LittleEndian.Uint64(b[26:])),
		Priority: types.Priority(binary.LittleEndian.Uint64(b[34:])),
	}, nil
}

// PutFramedClientRequest encodes (seq, request) into b.
func PutFramedClientRequest(b []byte, f types.FramedClientRequest) error {
	if len(b) < FramedClientRequestSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(b, f.Seq)
	return PutClientRequest(b[8:], f.Request)
}

// FramedClientRequestFromBytes decodes a framed request.
func FramedClientRequestFromBytes(b []byte) (types.FramedClientRequest, error) {
	if len(b) < FramedClientRequestSize {
		return types.FramedClientRequest{}, ErrShortBuffer
	}
	req, err := ClientRequestFromBytes(b[8:])
	if err != nil {
		return types.FramedClientRequest{}, err
	}
	return types.FramedClientRequest{
		Seq:     binary.LittleEndian.Uint64(b),
		Request: req,
	}, nil
}

// PutFramedClientResponse encodes (seq, response) into b.
func PutFramedClientResponse(b []byte, f types.FramedClientResponse) error {
	if len(b) < FramedClientResponseSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(b, f.Seq)
	return PutClientResponse(b[8:], f.Response)
}

// FramedClientResponseFromBytes decodes a framed response.
func FramedClientResponseFromBytes(b []byte) (types.FramedClientResponse, error) {
	if len(b) < FramedClientResponseSize {
		return types.FramedClientResponse{}, ErrShortBuffer
	}
	resp, err := ClientResponseFromBytes(b[8:])
	if err != nil {
		return types.FramedClientResponse{}, err
	}
	return types.FramedClientResponse{
		Seq:      binary.LittleEndian.Uint64(b),
		Response: resp,
	}, nil
}

// PutFramedMarketUpdate encodes (seq, update) into b.
func PutFramedMarketUpdate(b []byte, f types.FramedMarketUpdate) error {
	if len(b) < FramedMarketUpdateSize {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint64(b, f.Seq)
	return PutMarketUpdate(b[8:], f.Update)
}

// FramedMarketUpdateFromBytes decodes a framed market update datagram.
func FramedMarketUpdateFromBytes(b []byte) (types.FramedMarketUpdate, error) {
	if len(b) < FramedMarketUpdateSize {
		return types.FramedMarketUpdate{}, ErrShortBuffer
	}
	u, err := MarketUpdateFromBytes(b[8:])
	if err != nil {
		return types.FramedMarketUpdate{}, err
	}
	return types.FramedMarketUpdate{
		Seq:    binary.LittleEndian.Uint64(b),
		Update: u,
	}, nil
}
