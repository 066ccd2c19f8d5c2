package strategy

import (
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/trading/features"
	"github.com/tachyontrading/tachyon/trading/orders"
	"github.com/tachyontrading/tachyon/types"
)

// LiquidityTaker joins aggressive flow: when a trade consumes a large enough
// share of the touch, it takes the same direction at the top of book.
type LiquidityTaker struct {
	log      *logging.Logger
	features *features.Engine
	orders   *orders.Manager
	cfgs     []TickerCfg
}

// NewLiquidityTaker wires the taker to its features and order manager.
func NewLiquidityTaker(log *logging.Logger, feat *features.Engine, om *orders.Manager, cfgs []TickerCfg) *LiquidityTaker {
	return &LiquidityTaker{
		log:      log.Named(namedLogger + ".taker"),
		features: feat,
		orders:   om,
		cfgs:     cfgs,
	}
}

// OnOrderBookUpdate is not used by the taker; entries key off trades.
func (s *LiquidityTaker) OnOrderBookUpdate(types.TickerID, types.Price, types.Side, types.BBO) {}

// OnTradeUpdate enters in the aggressor's direction when the aggression
// ratio clears the threshold: buys lift the ask, sells hit the bid.
func (s *LiquidityTaker) OnTradeUpdate(update types.MarketUpdate, bbo types.BBO) {
	ratio, ok := s.features.AggTradeRatio()
	if !ok || !bbo.TwoSided() {
		return
	}
	cfg := s.cfgs[update.TickerID]
	if ratio.LessThan(cfg.Threshold) {
		return
	}

	if update.Side == types.SideBuy {
		s.orders.MoveOrders(update.TickerID, bbo.AskPrice, types.PriceInvalid, cfg.Clip)
	} else {
		s.orders.MoveOrders(update.TickerID, types.PriceInvalid, bbo.BidPrice, cfg.Clip)
	}
}

// OnOrderUpdate is already applied to the order manager by the engine.
func (s *LiquidityTaker) OnOrderUpdate(resp types.ClientResponse) {
	if s.log.IsDebug() {
		s.log.Debug("order update", logging.String("response", resp.String()))
	}
}
