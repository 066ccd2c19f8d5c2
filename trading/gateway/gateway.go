// Package gateway maintains the order entry session with the exchange: it
// drains the trade engine's outbound requests onto the TCP stream and feeds
// validated responses back into the pipeline.
package gateway

import (
	"io"
	"net"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"
)

// Gateway owns the client side of the order entry protocol. It is the sole
// consumer of the outbound request ring and the sole producer of the
// response ring. Sequences are session-scoped: a reconnect restarts both
// sides at 1, matching the server's fresh session state.
type Gateway struct {
	log *logging.Logger
	cfg Config

	clientID  types.ClientID
	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]

	running atomic.Bool
	done    chan struct{}
}

// New wires the gateway between the engine's rings and the exchange address.
func New(
	log *logging.Logger,
	cfg Config,
	clientID types.ClientID,
	requests *ring.Ring[types.ClientRequest],
	responses *ring.Ring[types.ClientResponse],
) *Gateway {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Gateway{
		log:       log,
		cfg:       cfg,
		clientID:  clientID,
		requests:  requests,
		responses: responses,
		done:      make(chan struct{}),
	}
}

// Start launches the connect/redial loop.
func (g *Gateway) Start() {
	if !g.running.CompareAndSwap(false, true) {
		return
	}
	g.log.Info("order gateway starting",
		logging.String("server", g.cfg.ServerAddress),
		logging.Uint64("client", uint64(g.clientID)))
	go g.run()
}

// Stop flags the loops to exit and waits for the session to close.
func (g *Gateway) Stop() {
	if !g.running.CompareAndSwap(true, false) {
		return
	}
	<-g.done
	g.log.Info("order gateway stopped")
}

func (g *Gateway) run() {
	defer close(g.done)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.RetryInterval.Get()
	policy.MaxInterval = g.cfg.MaxRetryInterval.Get()
	policy.MaxElapsedTime = 0 // redial until stopped

	for g.running.Load() {
		conn, err := net.Dial("tcp", g.cfg.ServerAddress)
		if err != nil {
			wait := policy.NextBackOff()
			g.log.Warn("dial failed, retrying",
				logging.String("server", g.cfg.ServerAddress),
				logging.Duration("backoff", wait),
				logging.Error(err))
			metrics.ReconnectCounterInc()
			g.sleep(wait)
			continue
		}
		policy.Reset()
		g.log.Info("session established",
			logging.String("remote", conn.RemoteAddr().String()))

		if err := g.session(conn); err != nil && g.running.Load() {
			g.log.Warn("session ended", logging.Error(err))
			metrics.ReconnectCounterInc()
		}
		conn.Close()
	}
}

// session runs one connection to completion. The writer owns the connection
// from this goroutine; the reader runs alongside and its exit (or a stop)
// tears the session down.
func (g *Gateway) session(conn net.Conn) error {
	readErr := make(chan error, 1)
	go g.readLoop(conn, readErr)

	var nextOutSeq uint64 = 1
	buf := make([]byte, wire.FramedClientRequestSize)
	for g.running.Load() {
		select {
		case err := <-readErr:
			return err
		default:
		}

		req, ok := g.requests.Read()
		if !ok {
			runtime.Gosched()
			continue
		}
		framed := types.FramedClientRequest{Seq: nextOutSeq, Request: req}
		if err := wire.PutFramedClientRequest(buf, framed); err != nil {
			g.log.Panic("framed request did not fit the wire buffer", logging.Error(err))
		}
		if _, err := conn.Write(buf); err != nil {
			return errors.Wrap(err, "writing framed request")
		}
		nextOutSeq++
	}

	// unblock the reader and wait for it
	conn.Close()
	<-readErr
	return nil
}

// readLoop validates identity and sequence continuity on every inbound
// frame. Violations are logged and the frame skipped; the stream itself
// stays up.
func (g *Gateway) readLoop(conn net.Conn, readErr chan<- error) {
	var nextInSeq uint64 = 1
	buf := make([]byte, wire.FramedClientResponseSize)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			readErr <- err
			return
		}
		framed, err := wire.FramedClientResponseFromBytes(buf)
		if err != nil {
			readErr <- errors.Wrap(err, "decoding framed response")
			return
		}

		if framed.Response.ClientID != g.clientID {
			g.log.Error("response for another client, skipping",
				logging.Uint64("expected", uint64(g.clientID)),
				logging.String("response", framed.Response.String()))
			continue
		}
		if framed.Seq != nextInSeq {
			g.log.Error("out of sequence response, skipping",
				logging.Uint64("expected", nextInSeq),
				logging.Uint64("got", framed.Seq))
			metrics.SeqGapCounterInc()
			continue
		}
		nextInSeq++

		if !g.responses.Write(framed.Response) {
			g.log.Error("response ring full, dropping response",
				logging.String("response", framed.Response.String()))
			metrics.DroppedCounterInc("ogw_responses")
		}
	}
}

// sleep waits out a backoff interval while staying responsive to Stop.
func (g *Gateway) sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for g.running.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}
