package sender

import (
	"context"

	"github.com/pkg/errors"

	"github.com/G-Research/gelfprobe/internal/common/util"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
)

// UdpSender opens a new datagram socket per message. Nothing is awaited after the write.
type UdpSender struct {
	config Config
	dialer Dialer
}

func NewUdpSender(config Config) *UdpSender {
	return &UdpSender{
		config: config,
		dialer: config.dialer(),
	}
}

func (s *UdpSender) Send(ctx context.Context, msg *gelf.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	conn, err := s.dialer.DialContext(ctx, "udp", s.config.address())
	if err != nil {
		return errors.WithMessagef(err, "error opening udp socket to %s", s.config.address())
	}
	defer util.CloseResource("udp socket", conn)

	if err := conn.SetWriteDeadline(deadline(s.config.WriteTimeout)); err != nil {
		return errors.WithStack(err)
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.WithMessagef(err, "error sending datagram to %s", s.config.address())
	}
	return nil
}

func (s *UdpSender) Destination() string {
	return "udp://" + s.config.address()
}

func (s *UdpSender) Close() error {
	return nil
}
