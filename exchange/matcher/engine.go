package matcher

import (
	"runtime"

	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
)

// Engine owns one order book per ticker and is the sole consumer of the
// requests ring and sole producer of the responses and market update rings.
type Engine struct {
	log *logging.Logger
	cfg Config

	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]
	updates   *ring.Ring[types.MarketUpdate]

	books []*OrderBook

	running atomic.Bool
	done    chan struct{}
}

// New wires the engine to its three rings and builds the per-ticker books.
func New(
	log *logging.Logger,
	cfg Config,
	requests *ring.Ring[types.ClientRequest],
	responses *ring.Ring[types.ClientResponse],
	updates *ring.Ring[types.MarketUpdate],
) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	e := &Engine{
		log:       log,
		cfg:       cfg,
		requests:  requests,
		responses: responses,
		updates:   updates,
		done:      make(chan struct{}),
	}
	e.books = make([]*OrderBook, cfg.NumTickers)
	for i := range e.books {
		e.books[i] = NewOrderBook(log, cfg, types.TickerID(i), e)
	}
	return e
}

// ReloadConf updates the internal configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfg = cfg
}

// Start launches the matching goroutine.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.log.Info("matching engine starting",
		logging.Uint64("tickers", e.cfg.NumTickers))
	go e.run()
}

// Stop flags the main loop to exit at its next queue-empty check and waits
// for it to do so.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	<-e.done
	e.log.Info("matching engine stopped")
}

// Book returns the order book for a ticker, for inspection.
func (e *Engine) Book(tickerID types.TickerID) *OrderBook {
	return e.books[tickerID]
}

// PoolInUse reports acquired order and price-level slots summed across every
// book. Safe to call from a metrics sampler while the engine runs.
func (e *Engine) PoolInUse() (orders, levels int) {
	for _, b := range e.books {
		orders += b.orderPool.InUse()
		levels += b.levelPool.InUse()
	}
	return orders, levels
}

func (e *Engine) run() {
	defer close(e.done)
	for e.running.Load() {
		req, ok := e.requests.Read()
		if !ok {
			runtime.Gosched()
			continue
		}
		e.process(req)
	}
}

func (e *Engine) process(req types.ClientRequest) {
	if e.log.IsDebug() {
		e.log.Debug("processing request", logging.String("request", req.String()))
	}
	metrics.RequestCounterInc(req.Kind.String())

	if uint64(req.TickerID) >= uint64(len(e.books)) {
		e.log.Panic("request for unknown ticker",
			logging.Uint64("ticker", uint64(req.TickerID)),
			logging.String("request", req.String()))
	}
	book := e.books[req.TickerID]

	switch req.Kind {
	case types.ClientRequestNew:
		if uint64(req.ClientID) >= types.MaxClients {
			e.log.Panic("client id out of range on new order",
				logging.Uint64("client", uint64(req.ClientID)))
		}
		book.Add(req.ClientID, req.OrderID, req.Side, req.Price, req.Qty)
	case types.ClientRequestCancel:
		book.Cancel(req.ClientID, req.OrderID)
	default:
		e.log.Panic("unknown client request kind on live path",
			logging.Uint8("kind", uint8(req.Kind)))
	}
}

// SendClientResponse implements Sink. A full ring is logged and the record
// dropped; the engine never blocks.
func (e *Engine) SendClientResponse(resp types.ClientResponse) {
	metrics.ResponseCounterInc(resp.Kind.String())
	if !e.responses.Write(resp) {
		e.log.Error("responses ring full, dropping record",
			logging.String("response", resp.String()))
		metrics.DroppedCounterInc("responses")
	}
}

// SendMarketUpdate implements Sink. A full ring is logged and the record
// dropped; the engine never blocks.
func (e *Engine) SendMarketUpdate(update types.MarketUpdate) {
	if update.Kind == types.MarketUpdateTrade {
		metrics.TradeCounterInc()
	}
	if !e.updates.Write(update) {
		e.log.Error("market updates ring full, dropping record",
			logging.String("update", update.String()))
		metrics.DroppedCounterInc("updates")
	}
}
