package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
	"github.com/G-Research/gelfprobe/internal/gelfprobe/gelf"
)

const gelfHttpPath = "/gelf"

// Longest response body quoted in an error.
const maxErrorBodyBytes = 512

// HttpSender posts each message to the GELF HTTP input and expects a 2xx answer.
type HttpSender struct {
	url    string
	client *http.Client
}

func NewHttpSender(config Config) *HttpSender {
	scheme := config.Scheme
	if scheme == "" {
		scheme = "http"
	}
	dialer := config.dialer()
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		DisableKeepAlives:   false,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}, //nolint:gosec
	}
	return &HttpSender{
		url: fmt.Sprintf("%s://%s%s", scheme, config.address(), gelfHttpPath),
		client: &http.Client{
			Timeout:   config.HttpTimeout,
			Transport: transport,
		},
	}
}

func (s *HttpSender) Send(ctx context.Context, msg *gelf.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WithMessagef(err, "error posting to %s", s.url)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	// Drain whatever is left so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WithStack(&probeerrors.ErrUnexpectedStatus{
			Url:        s.url,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(body)),
		})
	}
	return nil
}

func (s *HttpSender) Destination() string {
	return s.url
}

func (s *HttpSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
