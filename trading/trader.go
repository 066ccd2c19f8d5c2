// Package trading assembles the client process: market data consumer,
// trade engine pipeline and order gateway around their three rings.
package trading

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/trading/engine"
	"github.com/tachyontrading/tachyon/trading/gateway"
	"github.com/tachyontrading/tachyon/trading/marketdata"
	"github.com/tachyontrading/tachyon/trading/risk"
	"github.com/tachyontrading/tachyon/trading/strategy"
	"github.com/tachyontrading/tachyon/types"
)

// Trader is the whole trading process. Ring ownership:
//
//	consumer --mdq-->      engine --requests--> gateway
//	gateway  --responses-> engine
type Trader struct {
	log *logging.Logger
	cfg Config

	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]
	mdq       *ring.Ring[types.MarketUpdate]

	algo     strategy.Algo
	consumer *marketdata.Consumer
	engine   *engine.TradeEngine
	gateway  *gateway.Gateway
}

// New builds the trading process for one client.
func New(log *logging.Logger, cfg Config) (*Trader, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	algo, err := strategy.ParseAlgo(cfg.Algo)
	if err != nil {
		return nil, err
	}

	tickerCfgs := make([]strategy.TickerCfg, len(cfg.Tickers))
	for i, tc := range cfg.Tickers {
		tickerCfgs[i] = strategy.TickerCfg{
			Clip:      types.Qty(tc.Clip),
			Threshold: tc.Threshold,
			Risk: risk.Cfg{
				MaxOrderSize: types.Qty(tc.MaxOrderSize),
				MaxPosition:  tc.MaxPosition,
				MaxLoss:      tc.MaxLoss,
			},
		}
	}
	numTickers := uint64(len(tickerCfgs))

	engineCfg := cfg.Engine
	engineCfg.NumTickers = numTickers
	consumerCfg := cfg.MarketData
	consumerCfg.NumTickers = numTickers

	t := &Trader{
		log:       log,
		cfg:       cfg,
		requests:  ring.New[types.ClientRequest](cfg.QueueCapacity),
		responses: ring.New[types.ClientResponse](cfg.QueueCapacity),
		mdq:       ring.New[types.MarketUpdate](cfg.QueueCapacity),
		algo:      algo,
	}
	t.engine = engine.New(log, engineCfg, types.ClientID(cfg.ClientID), algo,
		tickerCfgs, t.requests, t.responses, t.mdq)
	t.consumer = marketdata.NewConsumer(log, consumerCfg, t.mdq)
	t.gateway = gateway.New(log, cfg.Gateway, types.ClientID(cfg.ClientID),
		t.requests, t.responses)
	return t, nil
}

// Engine exposes the trade engine, for inspection.
func (t *Trader) Engine() *engine.TradeEngine {
	return t.engine
}

// Run starts the pipeline and blocks until the context is cancelled or the
// market has been silent past the configured limit, then shuts down in
// dataflow order.
func (t *Trader) Run(ctx context.Context) error {
	t.engine.Start()
	t.gateway.Start()
	if err := t.consumer.Start(); err != nil {
		t.stop()
		return err
	}
	t.log.Info("trader running",
		logging.Uint64("client", t.cfg.ClientID),
		logging.String("algo", t.algo.String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		t.watchSilence(ctx, cancel)
		return nil
	})
	if t.algo == strategy.AlgoRandom {
		eg.Go(func() error {
			t.randomFlow(ctx)
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := eg.Wait()

	t.stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stop tears the pipeline down upstream-first: stop the market data intake,
// let the engine drain what it has, then let the gateway flush the
// remaining outbound requests.
func (t *Trader) stop() {
	t.consumer.Stop()
	t.drain("mdq", t.mdq)
	t.drain("responses", t.responses)
	t.engine.Stop()
	t.drain("requests", t.requests)
	t.gateway.Stop()
	t.log.Info("trader stopped")
}

func (t *Trader) drain(name string, q interface{ Empty() bool }) {
	deadline := time.Now().Add(t.cfg.DrainGrace.Get())
	for !q.Empty() {
		if time.Now().After(deadline) {
			t.log.Warn("queue did not drain before the grace period expired",
				logging.String("queue", name))
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// watchSilence samples the queue depth and pool utilization gauges once a
// second and cancels the run when the engine has not seen an event for the
// configured silence window.
func (t *Trader) watchSilence(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.QueueDepthSet("mdq", t.mdq.Len())
			metrics.QueueDepthSet("ogw_requests", t.requests.Len())
			metrics.QueueDepthSet("ogw_responses", t.responses.Len())
			orders, levels := t.engine.PoolInUse()
			metrics.PoolInUseSet("book_orders", orders)
			metrics.PoolInUseSet("book_levels", levels)
			if silent := t.engine.SilentFor(); silent >= t.cfg.MaxSilence.Get() {
				t.log.Info("market silent, shutting down",
					logging.Duration("silent", silent))
				cancel()
				return
			}
		}
	}
}

// randomFlow drives randomized order flow into the pipeline: a batch of NEW
// orders around the base price per ticker, with occasional cancels of
// earlier orders, paced by the configured interval.
func (t *Trader) randomFlow(ctx context.Context) {
	rng := rand.New(rand.NewSource(int64(t.cfg.ClientID)))
	cfg := t.cfg.Random
	clientID := types.ClientID(t.cfg.ClientID)

	var orderID types.OrderID
	sent := 0
	for {
		for i := range t.cfg.Tickers {
			select {
			case <-ctx.Done():
				return
			default:
			}

			side := types.SideBuy
			if rng.Intn(2) == 0 {
				side = types.SideSell
			}
			orderID++
			t.engine.SendClientRequest(types.ClientRequest{
				Kind:     types.ClientRequestNew,
				ClientID: clientID,
				TickerID: types.TickerID(i),
				OrderID:  orderID,
				Side:     side,
				Price:    types.Price(cfg.BasePrice - cfg.PriceBand + rng.Int63n(2*cfg.PriceBand+1)),
				Qty:      types.Qty(1 + rng.Int63n(int64(cfg.MaxQty))),
			})
			sent++

			if cfg.CancelEvery > 0 && sent%cfg.CancelEvery == 0 {
				t.engine.SendClientRequest(types.ClientRequest{
					Kind:     types.ClientRequestCancel,
					ClientID: clientID,
					TickerID: types.TickerID(i),
					OrderID:  types.OrderID(1 + rng.Int63n(int64(orderID))),
				})
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Interval.Get()):
		}
	}
}
