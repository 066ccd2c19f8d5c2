package marketdata

import (
	"runtime"

	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"
)

// Publisher is the sole consumer of the engine's market update ring. Each
// update is stamped with the next incremental sequence number, sent as one
// datagram on the incremental group, and the identical framed pair forwarded
// to the snapshot synthesizer's ring.
type Publisher struct {
	log *logging.Logger
	cfg Config

	updates *ring.Ring[types.MarketUpdate]
	snap    *ring.Ring[types.FramedMarketUpdate]
	sender  Sender

	nextIncSeq uint64

	running atomic.Bool
	done    chan struct{}

	buf [wire.FramedMarketUpdateSize]byte
}

// NewPublisher wires the publisher between the engine's update ring and the
// synthesizer's snapshot ring.
func NewPublisher(
	log *logging.Logger,
	cfg Config,
	updates *ring.Ring[types.MarketUpdate],
	snap *ring.Ring[types.FramedMarketUpdate],
	sender Sender,
) *Publisher {
	log = log.Named(namedLogger + ".publisher")
	log.SetLevel(cfg.Level.Get())
	return &Publisher{
		log:        log,
		cfg:        cfg,
		updates:    updates,
		snap:       snap,
		sender:     sender,
		nextIncSeq: 1,
		done:       make(chan struct{}),
	}
}

// NextIncSeq returns the sequence number the next published update will carry.
func (p *Publisher) NextIncSeq() uint64 {
	return p.nextIncSeq
}

// Start launches the publishing goroutine.
func (p *Publisher) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.log.Info("market data publisher starting",
		logging.String("incremental", p.cfg.IncrementalAddress))
	go p.run()
}

// Stop flags the loop to exit at its next queue-empty check and waits.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	<-p.done
	p.log.Info("market data publisher stopped")
}

func (p *Publisher) run() {
	defer close(p.done)
	for p.running.Load() {
		update, ok := p.updates.Read()
		if !ok {
			runtime.Gosched()
			continue
		}
		p.publish(update)
	}
}

// publish emits one framed update. Send failures are logged and the pipeline
// keeps going; datagram loss is absorbed by the snapshot recovery path.
func (p *Publisher) publish(update types.MarketUpdate) {
	framed := types.FramedMarketUpdate{
		Seq:    p.nextIncSeq,
		Update: update,
	}

	if err := wire.PutFramedMarketUpdate(p.buf[:], framed); err != nil {
		p.log.Panic("framed update did not fit the wire buffer", logging.Error(err))
	}
	if err := p.sender.Send(p.buf[:]); err != nil {
		p.log.Error("incremental multicast send failed",
			logging.Uint64("seq", framed.Seq),
			logging.Error(err))
	}
	metrics.MarketUpdateCounterInc(update.Kind.String())
	metrics.IncSeqSet(framed.Seq)

	if !p.snap.Write(framed) {
		// The synthesizer contracts a gap-free feed and will abort on the
		// hole; dropping here surfaces a provisioning error loudly.
		p.log.Error("snapshot ring full, dropping framed update",
			logging.Uint64("seq", framed.Seq))
		metrics.DroppedCounterInc("snapshot")
	}

	p.nextIncSeq++
}
