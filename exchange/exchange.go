package exchange

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tachyontrading/tachyon/exchange/marketdata"
	"github.com/tachyontrading/tachyon/exchange/matcher"
	"github.com/tachyontrading/tachyon/exchange/orderserver"
	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
)

// Exchange assembles the order server, matching engine, market data
// publisher and snapshot synthesizer around their four rings. Each ring has
// exactly one producer and one consumer:
//
//	server  --requests-->  engine --responses--> server
//	engine  --updates-->   publisher --snap-->   synthesizer
type Exchange struct {
	log *logging.Logger
	cfg Config

	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]
	updates   *ring.Ring[types.MarketUpdate]
	snap      *ring.Ring[types.FramedMarketUpdate]

	engine      *matcher.Engine
	server      *orderserver.Server
	publisher   *marketdata.Publisher
	synthesizer *marketdata.Synthesizer

	incSender  marketdata.Sender
	snapSender marketdata.Sender
}

// New builds the whole exchange process. The multicast senders connect
// eagerly so misconfigured groups fail at startup, not mid-session.
func New(log *logging.Logger, cfg Config) (*Exchange, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	incSender, err := marketdata.NewUDPSender(cfg.MarketData.IncrementalAddress)
	if err != nil {
		return nil, err
	}
	snapSender, err := marketdata.NewUDPSender(cfg.MarketData.SnapshotAddress)
	if err != nil {
		incSender.Close()
		return nil, err
	}

	e := &Exchange{
		log:        log,
		cfg:        cfg,
		requests:   ring.New[types.ClientRequest](cfg.QueueCapacity),
		responses:  ring.New[types.ClientResponse](cfg.QueueCapacity),
		updates:    ring.New[types.MarketUpdate](cfg.QueueCapacity),
		snap:       ring.New[types.FramedMarketUpdate](cfg.QueueCapacity),
		incSender:  incSender,
		snapSender: snapSender,
	}
	e.engine = matcher.New(log, cfg.Matcher, e.requests, e.responses, e.updates)
	e.server = orderserver.New(log, cfg.OrderServer, e.requests, e.responses)
	e.publisher = marketdata.NewPublisher(log, cfg.MarketData, e.updates, e.snap, incSender)
	e.synthesizer = marketdata.NewSynthesizer(log, cfg.MarketData, e.snap, snapSender)
	return e, nil
}

// ReloadConf updates the internal configuration and pushes it down to the
// components that support live reload.
func (e *Exchange) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfg = cfg
	e.engine.ReloadConf(cfg.Matcher)
}

// Engine exposes the matching engine, for inspection.
func (e *Exchange) Engine() *matcher.Engine {
	return e.engine
}

// Run starts every component and blocks until the context is cancelled,
// then shuts the pipeline down in dataflow order.
func (e *Exchange) Run(ctx context.Context) error {
	e.engine.Start()
	e.publisher.Start()
	e.synthesizer.Start()
	if err := e.server.Start(); err != nil {
		e.stop()
		return err
	}
	e.log.Info("exchange running")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		e.sampleQueueDepths(ctx)
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := eg.Wait()

	e.stop()
	return err
}

// stop tears the pipeline down upstream-first: close the client intake,
// let the engine drain the requests it already has, then let the market
// data path drain what the engine produced.
func (e *Exchange) stop() {
	e.server.Stop()
	e.drain("requests", e.requests)
	e.engine.Stop()
	e.drain("updates", e.updates)
	e.publisher.Stop()
	e.drain("snap", e.snap)
	e.synthesizer.Stop()
	e.incSender.Close()
	e.snapSender.Close()
	e.log.Info("exchange stopped")
}

func (e *Exchange) drain(name string, q interface{ Empty() bool }) {
	deadline := time.Now().Add(e.cfg.DrainGrace.Get())
	for !q.Empty() {
		if time.Now().After(deadline) {
			e.log.Warn("queue did not drain before the grace period expired",
				logging.String("queue", name))
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (e *Exchange) sampleQueueDepths(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.QueueDepthSet("requests", e.requests.Len())
			metrics.QueueDepthSet("responses", e.responses.Len())
			metrics.QueueDepthSet("updates", e.updates.Len())
			metrics.QueueDepthSet("snap", e.snap.Len())
			orders, levels := e.engine.PoolInUse()
			metrics.PoolInUseSet("matcher_orders", orders)
			metrics.PoolInUseSet("matcher_levels", levels)
		}
	}
}
