package marketdata

import (
	"net"

	"github.com/pkg/errors"
)

// Sender pushes one encoded datagram per call. The live implementation is a
// UDP multicast socket; tests substitute recorders.
type Sender interface {
	Send(b []byte) error
	Close() error
}

type udpSender struct {
	conn *net.UDPConn
}

// NewUDPSender opens a datagram socket aimed at the given multicast group.
func NewUDPSender(address string) (Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving multicast group %s", address)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing multicast group %s", address)
	}
	return &udpSender{conn: conn}, nil
}

func (s *udpSender) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *udpSender) Close() error {
	return s.conn.Close()
}
