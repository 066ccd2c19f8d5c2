package strategy_test

import (
	"testing"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/features"
	"github.com/tachyontrading/tachyon/trading/orders"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/trading/strategy"
	"github.com/tachyontrading/tachyon/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	requests []types.ClientRequest
}

func (r *recordingSender) SendClientRequest(req types.ClientRequest) {
	r.requests = append(r.requests, req)
}

func fixture(t *testing.T, threshold string) (*features.Engine, *orders.Manager, *recordingSender, []strategy.TickerCfg) {
	t.Helper()
	log := logging.NewTestLogger()
	cfgs := []strategy.TickerCfg{{
		Clip:      5,
		Threshold: num.MustDecimalFromString(threshold),
		Risk: risk.Cfg{
			MaxOrderSize: 1000,
			MaxPosition:  1000,
			MaxLoss:      num.MustDecimalFromString("-1000000"),
		},
	}}
	keeper := positions.NewKeeper(log, 1)
	riskMgr := risk.NewManager(log, keeper, []risk.Cfg{cfgs[0].Risk})
	sender := &recordingSender{}
	om := orders.NewManager(log, sender, riskMgr, 1, 1)
	return features.NewEngine(log), om, sender, cfgs
}

func TestParseAlgo(t *testing.T) {
	a, err := strategy.ParseAlgo("MAKER")
	require.NoError(t, err)
	assert.Equal(t, strategy.AlgoMaker, a)
	a, err = strategy.ParseAlgo("TAKER")
	require.NoError(t, err)
	assert.Equal(t, strategy.AlgoTaker, a)
	a, err = strategy.ParseAlgo("RANDOM")
	require.NoError(t, err)
	assert.Equal(t, strategy.AlgoRandom, a)
	_, err = strategy.ParseAlgo("maker")
	assert.Error(t, err)
}

func TestMakerQuotesAtTouchWhenFairIsFar(t *testing.T) {
	feat, om, sender, cfgs := fixture(t, "0.6")
	maker := strategy.NewMarketMaker(logging.NewTestLogger(), feat, om, cfgs)

	// symmetric book: fair = 101, one tick from both touches
	bbo := types.BBO{BidPrice: 100, BidQty: 5, AskPrice: 102, AskQty: 5}
	feat.OnOrderBookUpdate(bbo)
	maker.OnOrderBookUpdate(0, 100, types.SideBuy, bbo)

	require.Len(t, sender.requests, 2)
	assert.Equal(t, types.Price(100), sender.requests[0].Price, "fair is far enough to join the bid")
	assert.Equal(t, types.Price(102), sender.requests[1].Price, "fair is far enough to join the ask")
	assert.Equal(t, types.Qty(5), sender.requests[0].Qty)
}

func TestMakerStepsAwayWhenFairIsClose(t *testing.T) {
	feat, om, sender, cfgs := fixture(t, "1.5")
	maker := strategy.NewMarketMaker(logging.NewTestLogger(), feat, om, cfgs)

	bbo := types.BBO{BidPrice: 100, BidQty: 5, AskPrice: 102, AskQty: 5}
	feat.OnOrderBookUpdate(bbo)
	maker.OnOrderBookUpdate(0, 100, types.SideBuy, bbo)

	require.Len(t, sender.requests, 2)
	assert.Equal(t, types.Price(99), sender.requests[0].Price)
	assert.Equal(t, types.Price(103), sender.requests[1].Price)
}

func TestMakerStaysOutWithoutFairPrice(t *testing.T) {
	feat, om, sender, cfgs := fixture(t, "0.6")
	maker := strategy.NewMarketMaker(logging.NewTestLogger(), feat, om, cfgs)

	maker.OnOrderBookUpdate(0, 100, types.SideBuy, types.BBO{
		BidPrice: 100, BidQty: 5, AskPrice: 102, AskQty: 5,
	})
	assert.Empty(t, sender.requests)
}

func TestTakerJoinsAggressiveFlow(t *testing.T) {
	feat, om, sender, cfgs := fixture(t, "0.5")
	taker := strategy.NewLiquidityTaker(logging.NewTestLogger(), feat, om, cfgs)

	bbo := types.BBO{BidPrice: 100, BidQty: 8, AskPrice: 101, AskQty: 4}
	trade := types.MarketUpdate{
		Kind: types.MarketUpdateTrade, TickerID: 0,
		Side: types.SideBuy, Price: 101, Qty: 2,
	}
	feat.OnTradeUpdate(trade, bbo) // ratio 0.5, at threshold
	taker.OnTradeUpdate(trade, bbo)

	require.Len(t, sender.requests, 1)
	assert.Equal(t, types.SideBuy, sender.requests[0].Side)
	assert.Equal(t, types.Price(101), sender.requests[0].Price, "buys lift the ask")
}

func TestTakerIgnoresSmallTrades(t *testing.T) {
	feat, om, sender, cfgs := fixture(t, "0.9")
	taker := strategy.NewLiquidityTaker(logging.NewTestLogger(), feat, om, cfgs)

	bbo := types.BBO{BidPrice: 100, BidQty: 8, AskPrice: 101, AskQty: 4}
	trade := types.MarketUpdate{
		Kind: types.MarketUpdateTrade, TickerID: 0,
		Side: types.SideSell, Price: 100, Qty: 2,
	}
	feat.OnTradeUpdate(trade, bbo) // ratio 0.25 against bid qty
	taker.OnTradeUpdate(trade, bbo)

	assert.Empty(t, sender.requests)
}
