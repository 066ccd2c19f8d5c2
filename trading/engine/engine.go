// Package engine runs the trading pipeline: one goroutine draining gateway
// responses and market data, dispatching into the mirrored books, position
// keeper, feature engine, order manager and the active strategy.
package engine

import (
	"runtime"
	"time"

	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/trading/book"
	"github.com/tachyontrading/tachyon/trading/features"
	"github.com/tachyontrading/tachyon/trading/orders"
	"github.com/tachyontrading/tachyon/trading/positions"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/trading/strategy"
	"github.com/tachyontrading/tachyon/types"
)

// TradeEngine is the single consumer of the gateway response ring and the
// market data ring, and the single producer of the outbound request ring.
// All pipeline state is owned by its goroutine.
type TradeEngine struct {
	log *logging.Logger
	cfg Config

	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]
	updates   *ring.Ring[types.MarketUpdate]

	books     []*book.MarketOrderBook
	features  *features.Engine
	positions *positions.Keeper
	orders    *orders.Manager
	algo      strategy.Strategy

	lastEventNanos atomic.Int64

	running atomic.Bool
	done    chan struct{}
}

// New builds the pipeline for one client. The strategy is picked by algo;
// RANDOM installs a no-op strategy and leaves order generation to the flow
// driver.
func New(
	log *logging.Logger,
	cfg Config,
	clientID types.ClientID,
	algo strategy.Algo,
	tickerCfgs []strategy.TickerCfg,
	requests *ring.Ring[types.ClientRequest],
	responses *ring.Ring[types.ClientResponse],
	updates *ring.Ring[types.MarketUpdate],
) *TradeEngine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	e := &TradeEngine{
		log:       log,
		cfg:       cfg,
		requests:  requests,
		responses: responses,
		updates:   updates,
		done:      make(chan struct{}),
	}

	riskCfgs := make([]risk.Cfg, len(tickerCfgs))
	for i, tc := range tickerCfgs {
		riskCfgs[i] = tc.Risk
	}
	e.features = features.NewEngine(log)
	e.positions = positions.NewKeeper(log, cfg.NumTickers)
	riskMgr := risk.NewManager(log, e.positions, riskCfgs)
	e.orders = orders.NewManager(log, e, riskMgr, clientID, cfg.NumTickers)

	e.books = make([]*book.MarketOrderBook, cfg.NumTickers)
	for i := range e.books {
		e.books[i] = book.NewMarketOrderBook(log, cfg.Book, types.TickerID(i), e)
	}

	switch algo {
	case strategy.AlgoMaker:
		e.algo = strategy.NewMarketMaker(log, e.features, e.orders, tickerCfgs)
	case strategy.AlgoTaker:
		e.algo = strategy.NewLiquidityTaker(log, e.features, e.orders, tickerCfgs)
	default:
		e.algo = strategy.Noop{}
	}

	e.lastEventNanos.Store(time.Now().UnixNano())
	return e
}

// Positions exposes the position keeper, for inspection.
func (e *TradeEngine) Positions() *positions.Keeper {
	return e.positions
}

// Orders exposes the order manager, for inspection.
func (e *TradeEngine) Orders() *orders.Manager {
	return e.orders
}

// Book returns the mirrored book for a ticker, for inspection.
func (e *TradeEngine) Book(tickerID types.TickerID) *book.MarketOrderBook {
	return e.books[tickerID]
}

// PoolInUse reports acquired order and price-level slots summed across every
// client book. Safe to call from a metrics sampler while the engine runs.
func (e *TradeEngine) PoolInUse() (orders, levels int) {
	for _, b := range e.books {
		o, l := b.PoolInUse()
		orders += o
		levels += l
	}
	return orders, levels
}

// SilentFor returns how long ago the engine last processed an event.
func (e *TradeEngine) SilentFor() time.Duration {
	return time.Duration(time.Now().UnixNano() - e.lastEventNanos.Load())
}

// Start launches the pipeline goroutine.
func (e *TradeEngine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.log.Info("trade engine starting",
		logging.Uint64("tickers", e.cfg.NumTickers))
	go e.run()
}

// Stop flags the loop to exit at its next queue-empty check and waits.
func (e *TradeEngine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	<-e.done
	e.log.Info("trade engine stopped")
}

// run alternates a non-blocking drain of the two inbound rings so neither
// side can starve the other.
func (e *TradeEngine) run() {
	defer close(e.done)
	for e.running.Load() {
		progressed := false
		if resp, ok := e.responses.Read(); ok {
			e.OnOrderUpdate(resp)
			progressed = true
		}
		if update, ok := e.updates.Read(); ok {
			e.onMarketUpdate(update)
			progressed = true
		}
		if progressed {
			e.lastEventNanos.Store(time.Now().UnixNano())
		} else {
			runtime.Gosched()
		}
	}
}

// OnOrderUpdate dispatches one gateway response: fills feed the position
// keeper first, then the order manager, then the strategy.
func (e *TradeEngine) OnOrderUpdate(resp types.ClientResponse) {
	if e.log.IsDebug() {
		e.log.Debug("processing response", logging.String("response", resp.String()))
	}
	if resp.Kind == types.ClientResponseFilled {
		e.positions.AddFill(resp)
	}
	e.orders.OnOrderUpdate(resp)
	e.algo.OnOrderUpdate(resp)
}

func (e *TradeEngine) onMarketUpdate(update types.MarketUpdate) {
	if uint64(update.TickerID) >= uint64(len(e.books)) {
		e.log.Panic("market update for unknown ticker",
			logging.String("update", update.String()))
	}
	e.books[update.TickerID].OnMarketUpdate(update)
}

// OnOrderBookUpdate implements book.Listener: the fresh BBO feeds the
// position mark, the fair price and the strategy, in that order.
func (e *TradeEngine) OnOrderBookUpdate(tickerID types.TickerID, price types.Price, side types.Side, bbo types.BBO) {
	e.positions.UpdateBBO(tickerID, bbo)
	e.features.OnOrderBookUpdate(bbo)
	e.algo.OnOrderBookUpdate(tickerID, price, side, bbo)
}

// OnTradeUpdate implements book.Listener.
func (e *TradeEngine) OnTradeUpdate(update types.MarketUpdate, bbo types.BBO) {
	e.features.OnTradeUpdate(update, bbo)
	e.algo.OnTradeUpdate(update, bbo)
}

// SendClientRequest implements orders.Sender. A full ring is logged and the
// request dropped; the pipeline never blocks.
func (e *TradeEngine) SendClientRequest(req types.ClientRequest) {
	if e.log.IsDebug() {
		e.log.Debug("sending request", logging.String("request", req.String()))
	}
	if !e.requests.Write(req) {
		e.log.Error("outbound request ring full, dropping request",
			logging.String("request", req.String()))
		metrics.DroppedCounterInc("ogw_requests")
	}
}
