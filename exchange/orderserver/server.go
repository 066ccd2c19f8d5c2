package orderserver

import (
	"io"
	"net"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/tachyontrading/tachyon/libs/ring"
	"github.com/tachyontrading/tachyon/logging"
	"github.com/tachyontrading/tachyon/metrics"
	"github.com/tachyontrading/tachyon/types"
	"github.com/tachyontrading/tachyon/wire"
)

// session is one client connection. The reader goroutine owns the inbound
// sequence; the response distributor owns the outbound sequence and
// serialises writes through mu.
type session struct {
	id       uuid.UUID
	conn     net.Conn
	clientID types.ClientID

	nextInSeq  uint64
	nextOutSeq uint64

	mu     sync.Mutex
	closed bool
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
}

// Server terminates one reliable ordered byte stream per client. Session
// readers funnel through a single forwarder goroutine so the requests ring
// keeps exactly one producer; the distributor is the ring's sole consumer on
// the response side.
type Server struct {
	log *logging.Logger
	cfg Config

	requests  *ring.Ring[types.ClientRequest]
	responses *ring.Ring[types.ClientResponse]

	ln      net.Listener
	inbound chan types.ClientRequest

	mu       sync.Mutex
	byClient map[types.ClientID]*session

	running atomic.Bool
	wg      sync.WaitGroup
	done    chan struct{}
}

// New wires the server between its listener-to-be and the two rings.
func New(
	log *logging.Logger,
	cfg Config,
	requests *ring.Ring[types.ClientRequest],
	responses *ring.Ring[types.ClientResponse],
) *Server {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Server{
		log:       log,
		cfg:       cfg,
		requests:  requests,
		responses: responses,
		inbound:   make(chan types.ClientRequest, 1024),
		byClient:  make(map[types.ClientID]*session),
		done:      make(chan struct{}),
	}
}

// Start binds the listener and launches the accept, forward and distribute
// goroutines.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		s.running.Store(false)
		return errors.Wrapf(err, "listening on %s", s.cfg.ListenAddress)
	}
	s.ln = ln
	s.log.Info("order server listening",
		logging.String("address", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	go s.forward()
	go s.distribute()
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Stop closes the listener and every session, then waits for the pipeline
// goroutines to drain out.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.ln.Close()
	s.mu.Lock()
	for _, sess := range s.byClient {
		sess.close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	close(s.inbound)
	<-s.done
	s.log.Info("order server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for s.running.Load() {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.running.Load() {
				s.log.Error("accept failed", logging.Error(err))
			}
			return
		}
		sess := &session{
			id:         uuid.New(),
			conn:       conn,
			clientID:   types.ClientIDInvalid,
			nextInSeq:  1,
			nextOutSeq: 1,
		}
		s.log.Info("session connected",
			logging.String("session", sess.id.String()),
			logging.String("remote", conn.RemoteAddr().String()))
		s.wg.Add(1)
		go s.readLoop(sess)
	}
}

// readLoop consumes fixed-size framed requests. A sequence or identity
// violation tears the session down; the protocol has no resync.
func (s *Server) readLoop(sess *session) {
	defer s.wg.Done()
	defer s.teardown(sess)

	buf := make([]byte, wire.FramedClientRequestSize)
	for {
		if _, err := io.ReadFull(sess.conn, buf); err != nil {
			if s.running.Load() && !errors.Is(err, io.EOF) {
				s.log.Warn("session read failed",
					logging.String("session", sess.id.String()),
					logging.Error(err))
			}
			return
		}
		framed, err := wire.FramedClientRequestFromBytes(buf)
		if err != nil {
			s.log.Error("undecodable request frame, dropping session",
				logging.String("session", sess.id.String()),
				logging.Error(err))
			return
		}
		if framed.Seq != sess.nextInSeq {
			s.log.Error("out of sequence request, dropping session",
				logging.String("session", sess.id.String()),
				logging.Uint64("expected", sess.nextInSeq),
				logging.Uint64("got", framed.Seq))
			return
		}
		sess.nextInSeq++

		req := framed.Request
		if sess.clientID == types.ClientIDInvalid {
			if err := s.register(sess, req.ClientID); err != nil {
				s.log.Error("session registration failed, dropping session",
					logging.String("session", sess.id.String()),
					logging.Error(err))
				return
			}
		} else if req.ClientID != sess.clientID {
			s.log.Error("client id changed mid session, dropping session",
				logging.String("session", sess.id.String()),
				logging.Uint64("expected", uint64(sess.clientID)),
				logging.Uint64("got", uint64(req.ClientID)))
			return
		}

		s.inbound <- req
	}
}

func (s *Server) register(sess *session, clientID types.ClientID) error {
	if uint64(clientID) >= types.MaxClients {
		return errors.Errorf("client id %d out of range", clientID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byClient[clientID]; ok {
		return errors.Errorf("client %d already connected", clientID)
	}
	sess.clientID = clientID
	s.byClient[clientID] = sess
	s.log.Info("session registered",
		logging.String("session", sess.id.String()),
		logging.Uint64("client", uint64(clientID)))
	return nil
}

func (s *Server) teardown(sess *session) {
	sess.close()
	if sess.clientID == types.ClientIDInvalid {
		return
	}
	s.mu.Lock()
	if s.byClient[sess.clientID] == sess {
		delete(s.byClient, sess.clientID)
	}
	s.mu.Unlock()
	s.log.Info("session disconnected",
		logging.String("session", sess.id.String()),
		logging.Uint64("client", uint64(sess.clientID)))
}

// forward is the sole producer into the requests ring, FIFO by arrival
// across sessions.
func (s *Server) forward() {
	for req := range s.inbound {
		if !s.requests.Write(req) {
			s.log.Error("requests ring full, dropping request",
				logging.String("request", req.String()))
			metrics.DroppedCounterInc("requests")
		}
	}
}

// distribute is the sole consumer of the responses ring. Responses route to
// the session registered for their client id and carry a per-client
// outbound sequence starting at 1.
func (s *Server) distribute() {
	defer close(s.done)
	buf := make([]byte, wire.FramedClientResponseSize)
	for s.running.Load() || !s.responses.Empty() {
		resp, ok := s.responses.Read()
		if !ok {
			runtime.Gosched()
			continue
		}

		s.mu.Lock()
		sess := s.byClient[resp.ClientID]
		s.mu.Unlock()
		if sess == nil {
			s.log.Warn("response for unconnected client, dropping",
				logging.String("response", resp.String()))
			continue
		}

		framed := types.FramedClientResponse{
			Seq:      sess.nextOutSeq,
			Response: resp,
		}
		if err := wire.PutFramedClientResponse(buf, framed); err != nil {
			s.log.Panic("framed response did not fit the wire buffer", logging.Error(err))
		}

		sess.mu.Lock()
		closed := sess.closed
		var werr error
		if !closed {
			_, werr = sess.conn.Write(buf)
		}
		sess.mu.Unlock()
		if closed {
			continue
		}
		if werr != nil {
			s.log.Warn("session write failed",
				logging.String("session", sess.id.String()),
				logging.Error(werr))
			sess.close()
			continue
		}
		sess.nextOutSeq++
	}
}
