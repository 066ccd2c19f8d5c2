package trading_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownAlgo(t *testing.T) {
	cfg := trading.NewDefaultConfig()
	cfg.Algo = "YOLO"
	_, err := trading.New(logging.NewTestLogger(), cfg)
	assert.Error(t, err)
}

func TestRandomFlowReachesTheExchangeAndSilenceStopsTheRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	frames := make(chan types.FramedClientRequest, 1024)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, wire.FramedClientRequestSize)
		for {
			if _, err := io.ReadFull(conn, buf); err != nil {
				return
			}
			framed, err := wire.FramedClientRequestFromBytes(buf)
			if err != nil {
				return
			}
			select {
			case frames <- framed:
			default:
			}
		}
	}()

	cfg := trading.NewDefaultConfig()
	cfg.ClientID = 3
	cfg.Algo = "RANDOM"
	cfg.Gateway.ServerAddress = ln.Addr().String()
	cfg.QueueCapacity = 1024
	cfg.Engine.Book.MaxOrderIDs = 1024
	cfg.Engine.Book.MaxPriceLevels = 64
	cfg.MaxSilence.Duration = 100 * time.Millisecond
	cfg.Random.Interval.Duration = 5 * time.Millisecond

	tr, err := trading.New(logging.NewTestLogger(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, tr.Run(ctx), "silence past the limit is a clean shutdown")

	var first types.FramedClientRequest
	select {
	case first = <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("the exchange never saw a request")
	}
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, types.ClientID(3), first.Request.ClientID)
	assert.Equal(t, types.ClientRequestNew, first.Request.Kind)
}
