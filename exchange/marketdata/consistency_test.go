package marketdata_test

import (
	"math/rand"
	"testing"

	"github.com/tachyontrading/tachyon/exchange/marketdata"
	"github.com/tachyontrading/tachyon/exchange/matcher"
	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/book"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink frames every market update like the publisher would and feeds
// the synthesizer in-process, keeping a copy for replay.
type captureSink struct {
	seq   uint64
	synth *marketdata.Synthesizer
	incs  []types.FramedMarketUpdate
}

func (s *captureSink) SendClientResponse(types.ClientResponse) {}

func (s *captureSink) SendMarketUpdate(update types.MarketUpdate) {
	s.seq++
	framed := types.FramedMarketUpdate{Seq: s.seq, Update: update}
	s.synth.Apply(framed)
	s.incs = append(s.incs, framed)
}

type silentListener struct{}

func (silentListener) OnOrderBookUpdate(types.TickerID, types.Price, types.Side, types.BBO) {}
func (silentListener) OnTradeUpdate(types.MarketUpdate, types.BBO)                          {}

type flatOrder struct {
	side     types.Side
	price    types.Price
	qty      types.Qty
	priority types.Priority
}

// TestSnapshotPlusIncrementalsRebuildsBook drives random flow through the
// authoritative book, snapshots mid-stream, keeps trading, then checks that
// snapshot plus post-anchor incrementals reproduce the final book exactly.
func TestSnapshotPlusIncrementalsRebuildsBook(t *testing.T) {
	log := logging.NewTestLogger()

	synthCfg := marketdata.NewDefaultConfig()
	synthCfg.NumTickers = 1
	sender := &recordingSender{}
	synth := marketdata.NewSynthesizer(log, synthCfg, ring.New[types.FramedMarketUpdate](16), sender)

	sink := &captureSink{synth: synth}
	bookCfg := matcher.NewDefaultConfig()
	bookCfg.MaxOrderIDs = 4096
	bookCfg.MaxPriceLevels = 64
	authoritative := matcher.NewOrderBook(log, bookCfg, 0, sink)

	rng := rand.New(rand.NewSource(7))
	var oid types.OrderID
	step := func() {
		oid++
		if rng.Intn(5) == 0 && oid > 1 {
			authoritative.Cancel(types.ClientID(rng.Intn(4)), types.OrderID(rng.Intn(int(oid))))
			return
		}
		side := types.SideBuy
		if rng.Intn(2) == 0 {
			side = types.SideSell
		}
		authoritative.Add(
			types.ClientID(rng.Intn(4)),
			oid,
			side,
			types.Price(95+rng.Intn(10)),
			types.Qty(1+rng.Intn(10)),
		)
	}

	for i := 0; i < 300; i++ {
		step()
	}
	require.NoError(t, authoritative.CheckInvariants())

	synth.PublishSnapshot()
	anchor := synth.LastIncSeq()
	snapshot := sender.frames(t)

	for i := 0; i < 300; i++ {
		step()
	}
	require.NoError(t, authoritative.CheckInvariants())

	clientCfg := book.NewDefaultConfig()
	clientCfg.MaxOrderIDs = 4096
	clientCfg.MaxPriceLevels = 64
	rebuilt := book.NewMarketOrderBook(log, clientCfg, 0, silentListener{})
	for _, f := range snapshot {
		rebuilt.OnMarketUpdate(f.Update)
	}
	for _, f := range sink.incs {
		if f.Seq <= anchor {
			continue
		}
		rebuilt.OnMarketUpdate(f.Update)
	}

	want := map[types.OrderID]flatOrder{}
	authoritative.EachOrder(func(o *matcher.Order) {
		want[o.MarketOrderID] = flatOrder{o.Side, o.Price, o.Qty, o.Priority}
	})
	got := map[types.OrderID]flatOrder{}
	rebuilt.EachOrder(func(o *book.Order) {
		got[o.OrderID] = flatOrder{o.Side, o.Price, o.Qty, o.Priority}
	})

	require.NotEmpty(t, want, "the random flow should leave resting orders")
	assert.Equal(t, want, got)
}
