// Package marketdata consumes the exchange's multicast streams and emits a
// contiguous, in-order market update sequence for the trade engine,
// recovering from datagram loss through the snapshot stream.
package marketdata

import (
	"net"
	"time"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"
)

// State of the consumer's recovery state machine.
type State uint8

const (
	// StateSynced means the next expected incremental sequence is known and
	// frames pass straight through.
	StateSynced State = iota
	// StateRecovering means a gap was seen; incrementals are buffered while
	// a complete snapshot is assembled.
	StateRecovering
)

func (s State) String() string {
	if s == StateSynced {
		return "SYNCED"
	}
	return "RECOVERING"
}

type seqUpdate struct {
	seq    uint64
	update types.MarketUpdate
}

func seqLess(a, b seqUpdate) bool {
	return a.seq < b.seq
}

// Consumer listens on the incremental group, and on the snapshot group only
// while recovering. One goroutine owns all state; the mdq ring is its only
// output.
type Consumer struct {
	log *logging.Logger
	cfg Config

	mdq *ring.Ring[types.MarketUpdate]

	state     State
	expIncSeq uint64

	queuedIncs  *btree.BTreeG[seqUpdate]
	queuedSnaps *btree.BTreeG[seqUpdate]

	incConn  *net.UDPConn
	snapConn *net.UDPConn

	running atomic.Bool
	done    chan struct{}
}

// NewConsumer wires the consumer to its output ring. The stream starts at
// sequence 1, so a fresh consumer is synced by construction.
func NewConsumer(log *logging.Logger, cfg Config, mdq *ring.Ring[types.MarketUpdate]) *Consumer {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Consumer{
		log:         log,
		cfg:         cfg,
		mdq:         mdq,
		state:       StateSynced,
		expIncSeq:   1,
		queuedIncs:  btree.NewG(16, seqLess),
		queuedSnaps: btree.NewG(16, seqLess),
		done:        make(chan struct{}),
	}
}

// State returns the current recovery state.
func (c *Consumer) State() State {
	return c.state
}

// ExpIncSeq returns the next expected incremental sequence number.
func (c *Consumer) ExpIncSeq() uint64 {
	return c.expIncSeq
}

// Start joins the incremental group and launches the receive loop.
func (c *Consumer) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return nil
	}
	conn, err := joinGroup(c.cfg.IncrementalAddress)
	if err != nil {
		c.running.Store(false)
		return err
	}
	c.incConn = conn
	c.log.Info("market data consumer starting",
		logging.String("incremental", c.cfg.IncrementalAddress))
	go c.run()
	return nil
}

// Stop flags the loop to exit at its next read timeout and waits.
func (c *Consumer) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	<-c.done
	c.incConn.Close()
	if c.snapConn != nil {
		c.snapConn.Close()
		c.snapConn = nil
	}
	c.log.Info("market data consumer stopped")
}

func joinGroup(address string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving multicast group %s", address)
	}
	conn, err := net.ListenMulticastUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "joining multicast group %s", address)
	}
	return conn, nil
}

// run polls the incremental socket, and the snapshot socket while
// recovering. Short read deadlines keep the run flag honored.
func (c *Consumer) run() {
	defer close(c.done)
	buf := make([]byte, wire.FramedMarketUpdateSize)
	for c.running.Load() {
		// the snapshot group membership follows the state machine
		if c.state == StateRecovering && c.snapConn == nil {
			conn, err := joinGroup(c.cfg.SnapshotAddress)
			if err != nil {
				c.log.Error("joining snapshot group failed", logging.Error(err))
			} else {
				c.snapConn = conn
				c.log.Info("joined snapshot group",
					logging.String("snapshot", c.cfg.SnapshotAddress))
			}
		}
		if c.state == StateSynced && c.snapConn != nil {
			c.snapConn.Close()
			c.snapConn = nil
			c.log.Info("left snapshot group")
		}

		if framed, ok := c.read(c.incConn, buf); ok {
			c.OnIncremental(framed)
		}
		if c.snapConn != nil {
			if framed, ok := c.read(c.snapConn, buf); ok {
				c.OnSnapshot(framed)
			}
		}
	}
}

func (c *Consumer) read(conn *net.UDPConn, buf []byte) (types.FramedMarketUpdate, bool) {
	conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if nerr, ok := err.(net.Error); !ok || !nerr.Timeout() {
			if c.running.Load() {
				c.log.Warn("multicast read failed", logging.Error(err))
			}
		}
		return types.FramedMarketUpdate{}, false
	}
	if n != wire.FramedMarketUpdateSize {
		c.log.Error("runt market data datagram, dropping",
			logging.Int("size", n))
		return types.FramedMarketUpdate{}, false
	}
	framed, err := wire.FramedMarketUpdateFromBytes(buf)
	if err != nil {
		c.log.Error("undecodable market data datagram, dropping", logging.Error(err))
		return types.FramedMarketUpdate{}, false
	}
	return framed, true
}

// OnIncremental feeds one frame from the incremental stream through the
// state machine.
func (c *Consumer) OnIncremental(framed types.FramedMarketUpdate) {
	switch c.state {
	case StateSynced:
		switch {
		case framed.Seq == c.expIncSeq:
			c.emit(framed.Update)
			c.expIncSeq++
		case framed.Seq > c.expIncSeq:
			c.log.Warn("incremental gap, entering recovery",
				logging.Uint64("expected", c.expIncSeq),
				logging.Uint64("got", framed.Seq))
			metrics.SeqGapCounterInc()
			c.state = StateRecovering
			c.queuedIncs.Clear(false)
			c.queuedSnaps.Clear(false)
		default:
			// stale duplicate
		}
	case StateRecovering:
		c.queuedIncs.ReplaceOrInsert(seqUpdate{seq: framed.Seq, update: framed.Update})
	}
}

// OnSnapshot accumulates one frame from the snapshot stream and attempts to
// resynchronize when the frame could have completed a snapshot.
func (c *Consumer) OnSnapshot(framed types.FramedMarketUpdate) {
	if c.state != StateRecovering {
		return
	}
	if framed.Update.Kind == types.MarketUpdateSnapshotStart {
		// a fresh snapshot restarts accumulation
		c.queuedSnaps.Clear(false)
	}
	c.queuedSnaps.ReplaceOrInsert(seqUpdate{seq: framed.Seq, update: framed.Update})
	c.trySync()
}

// trySync checks for a complete snapshot frame plus contiguous buffered
// incrementals past its anchor, and replays both when it has them.
func (c *Consumer) trySync() {
	first, ok := c.queuedSnaps.Min()
	if !ok {
		return
	}
	if first.update.Kind != types.MarketUpdateSnapshotStart {
		c.log.Warn("snapshot records without a START, discarding")
		c.queuedSnaps.Clear(false)
		return
	}
	last, _ := c.queuedSnaps.Max()
	if last.update.Kind != types.MarketUpdateSnapshotEnd {
		return
	}

	// snapshot-local sequences must run 0..n with no holes, and both
	// anchors must agree
	var (
		records  []types.MarketUpdate
		nextSeq  uint64
		complete = true
	)
	c.queuedSnaps.Ascend(func(item seqUpdate) bool {
		if item.seq != nextSeq {
			complete = false
			return false
		}
		nextSeq++
		switch item.update.Kind {
		case types.MarketUpdateSnapshotStart, types.MarketUpdateSnapshotEnd:
		default:
			records = append(records, item.update)
		}
		return true
	})
	if !complete {
		c.log.Warn("snapshot frame has holes, discarding")
		c.queuedSnaps.Clear(false)
		return
	}
	if first.update.OrderID != last.update.OrderID {
		c.log.Warn("snapshot anchors disagree, discarding",
			logging.Uint64("start", uint64(first.update.OrderID)),
			logging.Uint64("end", uint64(last.update.OrderID)))
		c.queuedSnaps.Clear(false)
		return
	}
	anchor := uint64(first.update.OrderID)

	// the buffered incrementals past the anchor must themselves be
	// contiguous, or the book would jump a hole on replay
	expSeq := anchor + 1
	c.queuedIncs.Ascend(func(item seqUpdate) bool {
		if item.seq <= anchor {
			return true
		}
		if item.seq != expSeq {
			complete = false
			return false
		}
		expSeq++
		return true
	})
	if !complete {
		c.log.Warn("buffered incrementals have holes, waiting for the next snapshot")
		c.queuedSnaps.Clear(false)
		return
	}

	for _, u := range records {
		c.emit(u)
	}
	replayed := 0
	c.queuedIncs.Ascend(func(item seqUpdate) bool {
		if item.seq <= anchor {
			return true
		}
		c.emit(item.update)
		replayed++
		return true
	})
	c.expIncSeq = expSeq
	c.queuedIncs.Clear(false)
	c.queuedSnaps.Clear(false)
	c.state = StateSynced
	c.log.Info("recovered from snapshot",
		logging.Uint64("anchor", anchor),
		logging.Int("snapshot_records", len(records)),
		logging.Int("incrementals_replayed", replayed),
		logging.Uint64("next_seq", c.expIncSeq))
}

func (c *Consumer) emit(update types.MarketUpdate) {
	switch update.Kind {
	case types.MarketUpdateSnapshotStart, types.MarketUpdateSnapshotEnd:
		return
	}
	if update.TickerID != types.TickerIDInvalid && uint64(update.TickerID) >= c.cfg.NumTickers {
		c.log.Panic("market update for unknown ticker",
			logging.String("update", update.String()))
	}
	if !c.mdq.Write(update) {
		c.log.Error("market data ring full, dropping update",
			logging.String("update", update.String()))
		metrics.DroppedCounterInc("mdq")
	}
}
