package gateway_test

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/gateway"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGateway(t *testing.T, addr string) (*gateway.Gateway, *ring.Ring[types.ClientRequest], *ring.Ring[types.ClientResponse]) {
	t.Helper()
	requests := ring.New[types.ClientRequest](64)
	responses := ring.New[types.ClientResponse](64)
	cfg := gateway.NewDefaultConfig()
	cfg.ServerAddress = addr
	cfg.RetryInterval.Duration = 10 * time.Millisecond
	g := gateway.New(logging.NewTestLogger(), cfg, 7, requests, responses)
	g.Start()
	t.Cleanup(g.Stop)
	return g, requests, responses
}

func acceptOne(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFramedRequest(t *testing.T, conn net.Conn) types.FramedClientRequest {
	t.Helper()
	buf := make([]byte, wire.FramedClientRequestSize)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	framed, err := wire.FramedClientRequestFromBytes(buf)
	require.NoError(t, err)
	return framed
}

func writeFramedResponse(t *testing.T, conn net.Conn, seq uint64, resp types.ClientResponse) {
	t.Helper()
	buf := make([]byte, wire.FramedClientResponseSize)
	require.NoError(t, wire.PutFramedClientResponse(buf, types.FramedClientResponse{Seq: seq, Response: resp}))
	_, err := conn.Write(buf)
	require.NoError(t, err)
}

func readResponse(t *testing.T, r *ring.Ring[types.ClientResponse]) types.ClientResponse {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if resp, ok := r.Read(); ok {
			return resp
		}
		select {
		case <-deadline:
			t.Fatal("no response surfaced")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestOutboundSequenceStartsAtOne(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, requests, _ := startGateway(t, ln.Addr().String())
	conn := acceptOne(t, ln)

	req := types.ClientRequest{
		Kind: types.ClientRequestNew, ClientID: 7, TickerID: 0,
		OrderID: 1, Side: types.SideBuy, Price: 100, Qty: 5,
	}
	require.True(t, requests.Write(req))
	require.True(t, requests.Write(req))

	first := readFramedRequest(t, conn)
	second := readFramedRequest(t, conn)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, req, first.Request)
}

func TestInboundValidation(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, _, responses := startGateway(t, ln.Addr().String())
	conn := acceptOne(t, ln)

	good := types.ClientResponse{
		Kind: types.ClientResponseAccepted, ClientID: 7, TickerID: 0,
		ClientOrderID: 1, MarketOrderID: 1, Side: types.SideBuy, Price: 100, LeavesQty: 5,
	}
	foreign := good
	foreign.ClientID = 9

	// a foreign response and an out-of-sequence one are both skipped
	writeFramedResponse(t, conn, 1, foreign)
	writeFramedResponse(t, conn, 5, good)
	writeFramedResponse(t, conn, 1, good)

	got := readResponse(t, responses)
	assert.Equal(t, good, got)
	_, ok := responses.Read()
	assert.False(t, ok, "only the valid in-sequence response surfaces")
}

func TestRedialAfterServerRestart(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	_, requests, _ := startGateway(t, addr)
	conn := acceptOne(t, ln)
	conn.Close()
	ln.Close()

	// server comes back on the same address; the gateway redials and the
	// fresh session restarts the outbound sequence at 1
	time.Sleep(20 * time.Millisecond)
	ln2, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer ln2.Close()
	conn2 := acceptOne(t, ln2)

	require.True(t, requests.Write(types.ClientRequest{
		Kind: types.ClientRequestNew, ClientID: 7, OrderID: 2,
		Side: types.SideSell, Price: 101, Qty: 1,
	}))
	framed := readFramedRequest(t, conn2)
	assert.Equal(t, uint64(1), framed.Seq)
}
