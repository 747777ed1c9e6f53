package sender

import (
	"context"
	"net"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
)

// Each GELF record on a TCP stream ends with a null byte.
const recordTerminator byte = 0

// TcpSender keeps one connection open and writes every message of its batch to it.
// Opening a connection per message exhausts local ports at high rates.
// The connection is dialled on first use; after a failed write it is dropped and re-dialled on the next send.
type TcpSender struct {
	config Config
	dialer Dialer
	conn   net.Conn
}

func NewTcpSender(config Config) *TcpSender {
	return &TcpSender{
		config: config,
		dialer: config.dialer(),
	}
}

func (s *TcpSender) Send(ctx context.Context, msg *gelf.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if s.conn == nil {
		conn, err := s.dialer.DialContext(ctx, "tcp", s.config.address())
		if err != nil {
			return errors.WithMessagef(err, "error connecting to %s", s.config.address())
		}
		s.conn = conn
	}

	if err := writeFrame(s.conn, payload, s.config); err != nil {
		s.dropConnection()
		return err
	}
	return nil
}

func writeFrame(conn net.Conn, payload []byte, config Config) error {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, recordTerminator)

	if err := conn.SetWriteDeadline(deadline(config.WriteTimeout)); err != nil {
		return errors.WithStack(err)
	}
	for written := 0; written < len(frame); {
		n, err := conn.Write(frame[written:])
		if err != nil {
			return errors.WithMessagef(err, "error writing to %s after %d of %d bytes", config.address(), written+n, len(frame))
		}
		written += n
	}
	return nil
}

func (s *TcpSender) dropConnection() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.WithError(err).Debugf("error closing connection to %s", s.config.address())
	}
	s.conn = nil
}

func (s *TcpSender) Destination() string {
	return "tcp://" + s.config.address()
}

func (s *TcpSender) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return errors.WithStack(err)
}
