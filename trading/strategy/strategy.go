// Package strategy holds the trading algorithms driving the order manager:
// a fair-value market maker and an aggression-triggered liquidity taker.
package strategy

import (
	"github.com/pkg/errors"

	"github.com/tachyontrading/tachyon/libs/num"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/types"
)

const namedLogger = "strategy"

// Algo selects the trading behaviour of the process.
type Algo uint8

const (
	AlgoInvalid Algo = iota
	AlgoMaker
	AlgoTaker
	AlgoRandom
)

func (a Algo) String() string {
	switch a {
	case AlgoMaker:
		return "MAKER"
	case AlgoTaker:
		return "TAKER"
	case AlgoRandom:
		return "RANDOM"
	default:
		return "INVALID"
	}
}

// ParseAlgo maps the command line spelling to an Algo.
func ParseAlgo(s string) (Algo, error) {
	switch s {
	case "MAKER":
		return AlgoMaker, nil
	case "TAKER":
		return AlgoTaker, nil
	case "RANDOM":
		return AlgoRandom, nil
	default:
		return AlgoInvalid, errors.Errorf("unknown algo %q", s)
	}
}

// TickerCfg parameterizes one ticker for a strategy: the working order size,
// the strategy threshold and the risk limits.
type TickerCfg struct {
	Clip      types.Qty
	Threshold num.Decimal
	Risk      risk.Cfg
}

// Strategy receives the trade engine's callbacks. Implementations must not
// panic; failures surface through logs only.
type Strategy interface {
	OnOrderBookUpdate(tickerID types.TickerID, price types.Price, side types.Side, bbo types.BBO)
	OnTradeUpdate(update types.MarketUpdate, bbo types.BBO)
	OnOrderUpdate(resp types.ClientResponse)
}

// Noop is the strategy used when the process only generates random flow;
// every callback is ignored.
type Noop struct{}

func (Noop) OnOrderBookUpdate(types.TickerID, types.Price, types.Side, types.BBO) {}
func (Noop) OnTradeUpdate(types.MarketUpdate, types.BBO)                          {}
func (Noop) OnOrderUpdate(types.ClientResponse)                                   {}
