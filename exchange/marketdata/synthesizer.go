package marketdata

import (
	"runtime"
	"time"

	"github.com/google/btree"
	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"
)

// shadowOrder is the flat mirror of one live exchange order. Ordering inside
// the book is not kept; price and priority are enough for consumers to
// rebuild it.
type shadowOrder struct {
	OrderID  types.OrderID
	Side     types.Side
	Price    types.Price
	Qty      types.Qty
	Priority types.Priority
}

func shadowLess(a, b shadowOrder) bool {
	return a.OrderID < b.OrderID
}

// Synthesizer mirrors every book from the incremental stream and publishes a
// self-contained snapshot of all of them every snapshot interval.
type Synthesizer struct {
	log *logging.Logger
	cfg Config

	snap   *ring.Ring[types.FramedMarketUpdate]
	sender Sender

	// per-ticker live shadow orders, ascending market order id
	tickerOrders []*btree.BTreeG[shadowOrder]

	lastIncSeq uint64
	epoch      uint64

	running atomic.Bool
	done    chan struct{}

	buf [wire.FramedMarketUpdateSize]byte
}

// NewSynthesizer wires the synthesizer to the publisher's snapshot ring.
func NewSynthesizer(
	log *logging.Logger,
	cfg Config,
	snap *ring.Ring[types.FramedMarketUpdate],
	sender Sender,
) *Synthesizer {
	log = log.Named(namedLogger + ".synthesizer")
	log.SetLevel(cfg.Level.Get())

	s := &Synthesizer{
		log:    log,
		cfg:    cfg,
		snap:   snap,
		sender: sender,
		done:   make(chan struct{}),
	}
	s.tickerOrders = make([]*btree.BTreeG[shadowOrder], cfg.NumTickers)
	for i := range s.tickerOrders {
		s.tickerOrders[i] = btree.NewG(16, shadowLess)
	}
	return s
}

// LastIncSeq returns the last incremental sequence number applied.
func (s *Synthesizer) LastIncSeq() uint64 {
	return s.lastIncSeq
}

// Epoch returns the number of snapshots published so far.
func (s *Synthesizer) Epoch() uint64 {
	return s.epoch
}

// Start launches the synthesizer goroutine.
func (s *Synthesizer) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("snapshot synthesizer starting",
		logging.String("snapshot", s.cfg.SnapshotAddress),
		logging.Duration("interval", s.cfg.SnapshotInterval.Get()))
	go s.run()
}

// Stop flags the loop to exit at its next queue-empty check and waits.
func (s *Synthesizer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	<-s.done
	s.log.Info("snapshot synthesizer stopped")
}

func (s *Synthesizer) run() {
	defer close(s.done)
	lastSnapshot := time.Now()
	for s.running.Load() {
		framed, ok := s.snap.Read()
		if !ok {
			if time.Since(lastSnapshot) >= s.cfg.SnapshotInterval.Get() {
				lastSnapshot = time.Now()
				s.PublishSnapshot()
			}
			runtime.Gosched()
			continue
		}
		s.Apply(framed)
		if time.Since(lastSnapshot) >= s.cfg.SnapshotInterval.Get() {
			lastSnapshot = time.Now()
			s.PublishSnapshot()
		}
	}
}

// Apply folds one framed incremental update into the shadow books. The feed
// is in-process and contracts gap-free: any hole is fatal.
func (s *Synthesizer) Apply(framed types.FramedMarketUpdate) {
	if framed.Seq != s.lastIncSeq+1 {
		s.log.Panic("sequence gap on the publisher feed",
			logging.Uint64("expected", s.lastIncSeq+1),
			logging.Uint64("got", framed.Seq))
	}

	u := framed.Update
	switch u.Kind {
	case types.MarketUpdateAdd:
		orders := s.orders(u.TickerID)
		if _, ok := orders.Get(shadowOrder{OrderID: u.OrderID}); ok {
			s.log.Panic("shadow order already exists on ADD",
				logging.String("update", u.String()))
		}
		orders.ReplaceOrInsert(shadowOrder{
			OrderID:  u.OrderID,
			Side:     u.Side,
			Price:    u.Price,
			Qty:      u.Qty,
			Priority: u.Priority,
		})
	case types.MarketUpdateModify:
		orders := s.orders(u.TickerID)
		o, ok := orders.Get(shadowOrder{OrderID: u.OrderID})
		if !ok {
			s.log.Panic("shadow order missing on MODIFY",
				logging.String("update", u.String()))
		}
		if o.Side != u.Side {
			s.log.Panic("shadow order side mismatch on MODIFY",
				logging.String("update", u.String()))
		}
		o.Qty = u.Qty
		o.Price = u.Price
		orders.ReplaceOrInsert(o)
	case types.MarketUpdateCancel:
		orders := s.orders(u.TickerID)
		o, ok := orders.Delete(shadowOrder{OrderID: u.OrderID})
		if !ok {
			s.log.Panic("shadow order missing on CANCEL",
				logging.String("update", u.String()))
		}
		if o.Side != u.Side {
			s.log.Panic("shadow order side mismatch on CANCEL",
				logging.String("update", u.String()))
		}
	case types.MarketUpdateTrade,
		types.MarketUpdateClear,
		types.MarketUpdateSnapshotStart,
		types.MarketUpdateSnapshotEnd:
		// post-trade state arrives as MODIFY/CANCEL; nothing to mirror
	default:
		s.log.Panic("unknown market update kind on live path",
			logging.Uint8("kind", uint8(u.Kind)))
	}

	s.lastIncSeq = framed.Seq
}

// PublishSnapshot emits one complete bounded frame: SNAPSHOT_START anchored
// at the last applied incremental sequence, a CLEAR plus every live order
// per ticker, then SNAPSHOT_END with the same anchor. Sequence numbers are
// snapshot-local, restarting at 0.
func (s *Synthesizer) PublishSnapshot() {
	var seq uint64

	s.send(seq, types.MarketUpdate{
		Kind:     types.MarketUpdateSnapshotStart,
		OrderID:  types.OrderID(s.lastIncSeq),
		TickerID: types.TickerIDInvalid,
		Side:     types.SideInvalid,
		Price:    types.PriceInvalid,
		Qty:      types.QtyInvalid,
		Priority: types.PriorityInvalid,
	})
	seq++

	records := 0
	for tickerID, orders := range s.tickerOrders {
		s.send(seq, types.MarketUpdate{
			Kind:     types.MarketUpdateClear,
			OrderID:  types.OrderIDInvalid,
			TickerID: types.TickerID(tickerID),
			Side:     types.SideInvalid,
			Price:    types.PriceInvalid,
			Qty:      types.QtyInvalid,
			Priority: types.PriorityInvalid,
		})
		seq++

		orders.Ascend(func(o shadowOrder) bool {
			s.send(seq, types.MarketUpdate{
				Kind:     types.MarketUpdateAdd,
				OrderID:  o.OrderID,
				TickerID: types.TickerID(tickerID),
				Side:     o.Side,
				Price:    o.Price,
				Qty:      o.Qty,
				Priority: o.Priority,
			})
			seq++
			records++
			return true
		})
	}

	s.send(seq, types.MarketUpdate{
		Kind:     types.MarketUpdateSnapshotEnd,
		OrderID:  types.OrderID(s.lastIncSeq),
		TickerID: types.TickerIDInvalid,
		Side:     types.SideInvalid,
		Price:    types.PriceInvalid,
		Qty:      types.QtyInvalid,
		Priority: types.PriorityInvalid,
	})

	s.epoch++
	metrics.SnapshotCounterInc()
	s.log.Info("snapshot published",
		logging.Uint64("epoch", s.epoch),
		logging.Uint64("anchor", s.lastIncSeq),
		logging.Int("orders", records))
}

func (s *Synthesizer) send(seq uint64, u types.MarketUpdate) {
	if err := wire.PutFramedMarketUpdate(s.buf[:], types.FramedMarketUpdate{Seq: seq, Update: u}); err != nil {
		s.log.Panic("framed update did not fit the wire buffer", logging.Error(err))
	}
	if err := s.sender.Send(s.buf[:]); err != nil {
		s.log.Error("snapshot multicast send failed",
			logging.Uint64("seq", seq),
			logging.Error(err))
	}
}

func (s *Synthesizer) orders(tickerID types.TickerID) *btree.BTreeG[shadowOrder] {
	if uint64(tickerID) >= uint64(len(s.tickerOrders)) {
		s.log.Panic("update for unknown ticker",
			logging.Uint64("ticker", uint64(tickerID)))
	}
	return s.tickerOrders[tickerID]
}
