package engine_test

import (
	"testing"
	"time"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/engine"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/trading/strategy"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rings struct {
	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]
	updates   *ring.Ring[types.MarketUpdate]
}

func startEngine(t *testing.T, algo strategy.Algo, tickerCfg strategy.TickerCfg) (*engine.TradeEngine, rings) {
	t.Helper()
	r := rings{
		requests:  ring.New[types.ClientRequest](256),
		responses: ring.New[types.ClientResponse](256),
		updates:   ring.New[types.MarketUpdate](256),
	}
	cfg := engine.NewDefaultConfig()
	cfg.NumTickers = 1
	cfg.Book.MaxOrderIDs = 1024
	cfg.Book.MaxPriceLevels = 64
	e := engine.New(logging.NewTestLogger(), cfg, 1, algo,
		[]strategy.TickerCfg{tickerCfg}, r.requests, r.responses, r.updates)
	e.Start()
	t.Cleanup(e.Stop)
	return e, r
}

func wideOpenCfg(clip types.Qty, threshold string) strategy.TickerCfg {
	return strategy.TickerCfg{
		Clip:      clip,
		Threshold: num.MustDecimalFromString(threshold),
		Risk: risk.Cfg{
			MaxOrderSize: 1000,
			MaxPosition:  1000,
			MaxLoss:      num.MustDecimalFromString("-1000000"),
		},
	}
}

func readRequest(t *testing.T, r *ring.Ring[types.ClientRequest]) types.ClientRequest {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if req, ok := r.Read(); ok {
			return req
		}
		select {
		case <-deadline:
			t.Fatal("no request emitted")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func add(oid types.OrderID, side types.Side, px types.Price, qty types.Qty, prio types.Priority) types.MarketUpdate {
	return types.MarketUpdate{
		Kind: types.MarketUpdateAdd, OrderID: oid, TickerID: 0,
		Side: side, Price: px, Qty: qty, Priority: prio,
	}
}

func TestMakerPipelineQuotesFromMarketData(t *testing.T) {
	_, r := startEngine(t, strategy.AlgoMaker, wideOpenCfg(5, "0.6"))

	require.True(t, r.updates.Write(add(1, types.SideBuy, 100, 5, 1)))
	require.True(t, r.updates.Write(add(2, types.SideSell, 102, 5, 1)))

	// fair = 101, one tick off both touches: quotes join the touch
	bid := readRequest(t, r.requests)
	ask := readRequest(t, r.requests)
	assert.Equal(t, types.SideBuy, bid.Side)
	assert.Equal(t, types.Price(100), bid.Price)
	assert.Equal(t, types.SideSell, ask.Side)
	assert.Equal(t, types.Price(102), ask.Price)
}

func waitDrained[T any](t *testing.T, r *ring.Ring[T]) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !r.Empty() {
		select {
		case <-deadline:
			t.Fatal("ring never drained")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestFillFlowsIntoPositions(t *testing.T) {
	e, r := startEngine(t, strategy.AlgoMaker, wideOpenCfg(5, "0.6"))

	require.True(t, r.responses.Write(types.ClientResponse{
		Kind: types.ClientResponseFilled, ClientID: 1, TickerID: 0,
		ClientOrderID: 1, Side: types.SideBuy, Price: 100, ExecQty: 3, LeavesQty: 2,
	}))
	waitDrained(t, r.responses)
	e.Stop()

	assert.Equal(t, int64(3), e.Positions().Info(0).Position)
	assert.Equal(t, types.Qty(3), e.Positions().Info(0).Volume)
}

func TestRiskBlockedQuoteNeverReachesGateway(t *testing.T) {
	cfg := wideOpenCfg(11, "0.6")
	cfg.Risk.MaxOrderSize = 10
	e, r := startEngine(t, strategy.AlgoMaker, cfg)

	require.True(t, r.updates.Write(add(1, types.SideBuy, 100, 5, 1)))
	require.True(t, r.updates.Write(add(2, types.SideSell, 102, 5, 1)))
	waitDrained(t, r.updates)
	e.Stop()

	_, ok := r.requests.Read()
	assert.False(t, ok, "clip 11 against max order size 10 is blocked")
	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		assert.Equal(t, "INVALID", e.Orders().Order(0, side).State.String())
	}
}

func TestSilentForAdvancesWithoutEvents(t *testing.T) {
	e, r := startEngine(t, strategy.AlgoRandom, wideOpenCfg(5, "0.6"))

	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, e.SilentFor(), 10*time.Millisecond)

	require.True(t, r.updates.Write(add(1, types.SideBuy, 100, 5, 1)))
	deadline := time.After(2 * time.Second)
	for e.SilentFor() > 10*time.Millisecond {
		select {
		case <-deadline:
			t.Fatal("event did not reset the silence clock")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}
