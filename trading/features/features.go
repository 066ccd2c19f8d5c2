// Package features derives the signals the strategies trade on from raw
// book and trade updates.
package features

import (
	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "features"

// Engine maintains the fair market price and the aggressive trade quantity
// ratio. Both stay undefined until the quote is two sided.
type Engine struct {
	log *logging.Logger

	mktPrice      num.Decimal
	mktPriceValid bool

	aggRatio      num.Decimal
	aggRatioValid bool
}

// NewEngine returns an engine with both features undefined.
func NewEngine(log *logging.Logger) *Engine {
	return &Engine{log: log.Named(namedLogger)}
}

// MktPrice returns the qty-weighted fair price and whether it is defined.
func (e *Engine) MktPrice() (num.Decimal, bool) {
	return e.mktPrice, e.mktPriceValid
}

// AggTradeRatio returns the last trade's aggressive quantity ratio and
// whether it is defined.
func (e *Engine) AggTradeRatio() (num.Decimal, bool) {
	return e.aggRatio, e.aggRatioValid
}

// OnOrderBookUpdate recomputes the fair price, weighting each touch price by
// the opposite touch quantity.
func (e *Engine) OnOrderBookUpdate(bbo types.BBO) {
	if !bbo.TwoSided() {
		return
	}
	bidPx := num.DecimalFromInt64(int64(bbo.BidPrice))
	askPx := num.DecimalFromInt64(int64(bbo.AskPrice))
	bidQty := num.DecimalFromUint64(uint64(bbo.BidQty))
	askQty := num.DecimalFromUint64(uint64(bbo.AskQty))

	e.mktPrice = bidPx.Mul(askQty).Add(askPx.Mul(bidQty)).Div(bidQty.Add(askQty))
	e.mktPriceValid = true

	if e.log.IsDebug() {
		e.log.Debug("fair price updated",
			logging.String("mkt_price", e.mktPrice.String()),
			logging.String("bbo", bbo.String()))
	}
}

// OnTradeUpdate recomputes the aggressive trade quantity ratio: the traded
// qty against the touch qty the aggressor consumed.
func (e *Engine) OnTradeUpdate(update types.MarketUpdate, bbo types.BBO) {
	if !bbo.TwoSided() {
		return
	}
	touchQty := bbo.AskQty
	if update.Side == types.SideSell {
		touchQty = bbo.BidQty
	}
	e.aggRatio = num.DecimalFromUint64(uint64(update.Qty)).
		Div(num.DecimalFromUint64(uint64(touchQty)))
	e.aggRatioValid = true

	if e.log.IsDebug() {
		e.log.Debug("aggressive trade ratio updated",
			logging.String("agg_ratio", e.aggRatio.String()),
			logging.String("update", update.String()))
	}
}
