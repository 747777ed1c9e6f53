// Package graylog is a minimal client for the parts of the Graylog REST API the probe reads:
// system metrics and the universal relative search.
package graylog

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/gelfprobe/internal/common/probeerrors"
)

const (
	JournalEntriesUncommittedMetric = "org.graylog2.journal.entries-uncommitted"
	OutputThroughputMetric          = "org.graylog2.throughput.output.1-sec-rate"

	metricsPath = "/api/system/metrics/"
	searchPath  = "/api/search/universal/relative"

	maxErrorBodyBytes = 512
)

type LoginCredentials struct {
	Username string
	Password string
}

type Config struct {
	// http or https
	Scheme             string
	Host               string
	Port               int
	BasicAuth          LoginCredentials
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client talks to the Graylog REST API. Safe for concurrent use.
type Client struct {
	baseUrl   string
	basicAuth LoginCredentials
	client    *http.Client
}

func NewClient(config Config) *Client {
	scheme := config.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return &Client{
		baseUrl:   fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(config.Host, strconv.Itoa(config.Port))),
		basicAuth: config.BasicAuth,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}, //nolint:gosec
			},
		},
	}
}

// NewClientForUrl is used when the base url is already known, e.g., an httptest server.
func NewClientForUrl(baseUrl string, basicAuth LoginCredentials, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseUrl:   baseUrl,
		basicAuth: basicAuth,
		client:    client,
	}
}

type metricResponse struct {
	Value *float64 `json:"value"`
}

// Metric returns the current value of the named system metric.
func (c *Client) Metric(ctx context.Context, name string) (float64, error) {
	u := c.baseUrl + metricsPath + url.PathEscape(name)
	resp := metricResponse{}
	if err := c.getJson(ctx, u, &resp); err != nil {
		return 0, err
	}
	if resp.Value == nil {
		return 0, errors.WithStack(&probeerrors.ErrMissingField{Field: "value", Url: u})
	}
	return *resp.Value, nil
}

type searchResponse struct {
	TotalResults *int64 `json:"total_results"`
}

// SearchUrl is the relative search url used by SearchTotal.
func (c *Client) SearchUrl(query string) string {
	params := url.Values{}
	params.Set("query", query)
	return c.baseUrl + searchPath + "?" + params.Encode() + "&range=0&limit=1"
}

// SearchTotal runs a relative search over all time and returns the total number of matching messages.
func (c *Client) SearchTotal(ctx context.Context, query string) (int64, error) {
	u := c.SearchUrl(query)
	log.Debugf("Validating sent data -> %s", u)

	start := time.Now()
	resp := searchResponse{}
	if err := c.getJson(ctx, u, &resp); err != nil {
		return 0, err
	}
	log.Debugf("%s request execution time %s", u, time.Since(start))

	if resp.TotalResults == nil {
		return 0, errors.WithStack(&probeerrors.ErrMissingField{Field: "total_results", Url: u})
	}
	return *resp.TotalResults, nil
}

func (c *Client) getJson(ctx context.Context, u string, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.basicAuth.Username != "" || c.basicAuth.Password != "" {
		req.SetBasicAuth(c.basicAuth.Username, c.basicAuth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WithMessagef(err, "error requesting %s", u)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithMessagef(err, "error reading response from %s", u)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return errors.WithStack(&probeerrors.ErrUnexpectedStatus{
			Url:        u,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(body)),
		})
	}
	if err := json.Unmarshal(body, into); err != nil {
		return errors.WithMessagef(err, "error decoding response from %s", u)
	}
	return nil
}
