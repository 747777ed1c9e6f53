// Package sender delivers GELF messages to the ingestion service over UDP, TCP or HTTP.
package sender

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
)

type Mode string

const (
	UDP  Mode = "UDP"
	TCP  Mode = "TCP"
	HTTP Mode = "HTTP"
)

// AllModes in the order they are run when several are requested.
var AllModes = []Mode{UDP, TCP, HTTP}

func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range AllModes {
		if m == mode {
			return m, nil
		}
	}
	return "", errors.WithStack(&probeerrors.ErrInvalidArgument{
		Name:    "mode",
		Value:   s,
		Message: "supported modes are UDP, TCP and HTTP",
	})
}

// Sender delivers messages over one protocol. A Sender belongs to a single worker and is not safe
// for concurrent use; the TCP variant holds that worker's connection.
type Sender interface {
	// Send delivers one message. Any network, protocol or encoding failure is returned.
	Send(ctx context.Context, msg *gelf.Message) error
	// Destination describes where messages go, for log lines.
	Destination() string
	Close() error
}

// Dialer opens network connections. *net.Dialer satisfies it; tests substitute their own to count dials.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Config struct {
	Host string
	Port int
	// Scheme used by the HTTP sender, http or https.
	Scheme             string
	DialTimeout        time.Duration
	WriteTimeout       time.Duration
	HttpTimeout        time.Duration
	InsecureSkipVerify bool
	// Optional; defaults to a net.Dialer using DialTimeout.
	Dialer Dialer
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{Timeout: c.DialTimeout}
}

// New creates a fresh sender for mode. Each worker should call this once.
func New(mode Mode, config Config) (Sender, error) {
	switch mode {
	case UDP:
		return NewUdpSender(config), nil
	case TCP:
		return NewTcpSender(config), nil
	case HTTP:
		return NewHttpSender(config), nil
	}
	return nil, errors.WithStack(&probeerrors.ErrInvalidArgument{
		Name:    "mode",
		Value:   mode,
		Message: "unsupported mode",
	})
}

// deadline returns now+timeout, or the zero time (no deadline) when timeout is not positive.
func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}
