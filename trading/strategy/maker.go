package strategy

import (
	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/features"
	"github.com/tachyontrading/tachyon/trading/orders"
	"github.com/tachyontrading/tachyon/types"
)

// MarketMaker quotes both sides of every ticker around the feature engine's
// fair price. When the fair price sits close to a touch, the quote steps one
// tick away from it to avoid being run over.
type MarketMaker struct {
	log      *logging.Logger
	features *features.Engine
	orders   *orders.Manager
	cfgs     []TickerCfg
}

// NewMarketMaker wires the maker to its features and order manager.
func NewMarketMaker(log *logging.Logger, feat *features.Engine, om *orders.Manager, cfgs []TickerCfg) *MarketMaker {
	return &MarketMaker{
		log:      log.Named(namedLogger + ".maker"),
		features: feat,
		orders:   om,
		cfgs:     cfgs,
	}
}

// OnOrderBookUpdate requotes the ticker from the fresh BBO and fair price.
func (s *MarketMaker) OnOrderBookUpdate(tickerID types.TickerID, _ types.Price, _ types.Side, bbo types.BBO) {
	fair, ok := s.features.MktPrice()
	if !ok || !bbo.TwoSided() {
		return
	}
	cfg := s.cfgs[tickerID]

	bidPx := num.DecimalFromInt64(int64(bbo.BidPrice))
	askPx := num.DecimalFromInt64(int64(bbo.AskPrice))

	bid := bbo.BidPrice
	if fair.Sub(bidPx).LessThan(cfg.Threshold) {
		bid--
	}
	ask := bbo.AskPrice
	if askPx.Sub(fair).LessThan(cfg.Threshold) {
		ask++
	}

	s.orders.MoveOrders(tickerID, bid, ask, cfg.Clip)
}

// OnTradeUpdate is not used by the maker; requotes key off book updates.
func (s *MarketMaker) OnTradeUpdate(types.MarketUpdate, types.BBO) {}

// OnOrderUpdate is already applied to the order manager by the engine.
func (s *MarketMaker) OnOrderUpdate(resp types.ClientResponse) {
	if s.log.IsDebug() {
		s.log.Debug("order update", logging.String("response", resp.String()))
	}
}
