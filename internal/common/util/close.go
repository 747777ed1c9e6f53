package util

import (
	"io"
	"net"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CloseResource is meant to be deferred: failures are logged, and closing something that is already closed is not one.
func CloseResource(name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).WithField("resource", name).Warn("Failed to close resource cleanly")
	}
}
