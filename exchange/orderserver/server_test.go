package orderserver_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/tachyontrading/tachyon/exchange/orderserver"
	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*orderserver.Server, *ring.Ring[types.ClientRequest], *ring.Ring[types.ClientResponse]) {
	t.Helper()
	requests := ring.New[types.ClientRequest](64)
	responses := ring.New[types.ClientResponse](64)
	cfg := orderserver.NewDefaultConfig()
	cfg.ListenAddress = "127.0.0.1:0"
	srv := orderserver.New(logging.NewTestLogger(), cfg, requests, responses)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, requests, responses
}

func sendFramed(t *testing.T, conn net.Conn, seq uint64, req types.ClientRequest) {
	t.Helper()
	buf := make([]byte, wire.FramedClientRequestSize)
	require.NoError(t, wire.PutFramedClientRequest(buf, types.FramedClientRequest{Seq: seq, Request: req}))
	_, err := conn.Write(buf)
	require.NoError(t, err)
}

func readRing[T any](t *testing.T, r *ring.Ring[T]) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if v, ok := r.Read(); ok {
			return v
		}
		select {
		case <-deadline:
			t.Fatal("ring stayed empty")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRequestReachesRing(t *testing.T) {
	srv, requests, _ := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	want := types.ClientRequest{
		Kind:     types.ClientRequestNew,
		ClientID: 1,
		TickerID: 0,
		OrderID:  10,
		Side:     types.SideBuy,
		Price:    100,
		Qty:      5,
	}
	sendFramed(t, conn, 1, want)

	assert.Equal(t, want, readRing(t, requests))
}

func TestResponseRoutedWithOutboundSequence(t *testing.T) {
	srv, requests, responses := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// register client 1 with its first request
	sendFramed(t, conn, 1, types.ClientRequest{Kind: types.ClientRequestNew, ClientID: 1, OrderID: 1, Side: types.SideBuy, Price: 100, Qty: 1})
	readRing(t, requests)

	resp := types.ClientResponse{
		Kind:          types.ClientResponseAccepted,
		ClientID:      1,
		TickerID:      0,
		ClientOrderID: 1,
		MarketOrderID: 1,
		Side:          types.SideBuy,
		Price:         100,
		LeavesQty:     1,
	}
	require.True(t, responses.Write(resp))

	buf := make([]byte, wire.FramedClientResponseSize)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)

	framed, err := wire.FramedClientResponseFromBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), framed.Seq, "outbound sequence starts at 1")
	assert.Equal(t, resp, framed.Response)
}

func TestOutOfSequenceRequestDropsSession(t *testing.T) {
	srv, requests, _ := startServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	sendFramed(t, conn, 1, types.ClientRequest{Kind: types.ClientRequestNew, ClientID: 2, OrderID: 1, Side: types.SideBuy, Price: 100, Qty: 1})
	readRing(t, requests)

	// skip to 3: the server drops the session
	sendFramed(t, conn, 3, types.ClientRequest{Kind: types.ClientRequestNew, ClientID: 2, OrderID: 2, Side: types.SideBuy, Price: 100, Qty: 1})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	one := make([]byte, 1)
	_, err = conn.Read(one)
	assert.Error(t, err, "connection should be closed by the server")
}
