// Package translink is a client for the TransLink Real-Time Transit
// Information API. Every call makes exactly one request, checks for a network
// connection first, and reports failures as *Error.
package translink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nextbus/internal/metrics"
	"nextbus/internal/model"
)

const (
	DefaultBaseURL        = "http://api.translink.ca/RTTIAPI/V1"
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 3 * time.Second

	maxBodyBytes = 4 << 20
)

// Client is an HTTP client for the RTTI API. It keeps no state between calls
// and may be shared by goroutines.
type Client struct {
	baseURL        *url.URL
	apiKey         string
	client         *http.Client
	network        Network
	connectTimeout time.Duration
	readTimeout    time.Duration
	metrics        *metrics.Collector
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithNetwork sets the reachability check consulted before each request.
func WithNetwork(n Network) Option {
	return func(c *Client) { c.network = n }
}

// WithHTTPClient replaces the HTTP client. The connect and read timeouts are
// then the caller's responsibility, except for the overall request deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeouts overrides the connect and read timeouts.
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = connect
		c.readTimeout = read
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a RTTI client. baseURL must include scheme and host, e.g.
// "http://api.translink.ca/RTTIAPI/V1".
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q needs a scheme and host", baseURL)
	}
	if apiKey == "" {
		return nil, errors.New("translink api key is required")
	}

	c := &Client{
		baseURL:        u,
		apiKey:         apiKey,
		network:        InterfaceNetwork{},
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = newHTTPClient(c.connectTimeout, c.readTimeout)
	}
	return c, nil
}

func newHTTPClient(connect, read time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: read,
		},
	}
}

// FetchStop looks up a stop by its number.
func (c *Client) FetchStop(ctx context.Context, stopID string) (*model.Stop, error) {
	start := time.Now()
	stop, err := c.fetchStop(ctx, stopID)
	c.finish("stop", stopID, start, err)
	if err != nil {
		return nil, err
	}
	return stop, nil
}

func (c *Client) fetchStop(ctx context.Context, stopID string) (*model.Stop, error) {
	if strings.TrimSpace(stopID) == "" {
		return nil, &Error{Kind: Unknown, Op: "stop", Detail: "empty stop id"}
	}
	body, err := c.get(ctx, "stop", "stops/"+url.PathEscape(stopID), nil)
	if err != nil {
		return nil, err
	}
	stop, err := parseStop(body)
	if err != nil {
		return nil, &Error{Kind: MalformedResponse, Op: "stop", Detail: err.Error()}
	}
	return stop, nil
}

// FetchArrivalEstimates appends the next predicted arrivals at stop, in the
// order the API returns them. Nothing is appended on failure.
func (c *Client) FetchArrivalEstimates(ctx context.Context, stop *model.Stop) error {
	start := time.Now()
	err := c.fetchArrivalEstimates(ctx, stop)
	c.finish("estimates", stopCode(stop), start, err)
	return err
}

func (c *Client) fetchArrivalEstimates(ctx context.Context, stop *model.Stop) error {
	if stop == nil || strings.TrimSpace(stop.Code) == "" {
		return &Error{Kind: Unknown, Op: "estimates", Detail: "stop without a code"}
	}
	body, err := c.get(ctx, "estimates", "stops/"+url.PathEscape(stop.Code)+"/estimates", nil)
	if err != nil {
		return err
	}
	estimates, err := parseEstimates(body)
	if err != nil {
		return &Error{Kind: MalformedResponse, Op: "estimates", Detail: err.Error()}
	}
	stop.AddEstimates(estimates...)
	return nil
}

// FetchVehicleLocations appends the buses currently serving stop. Nothing is
// appended on failure.
func (c *Client) FetchVehicleLocations(ctx context.Context, stop *model.Stop) error {
	start := time.Now()
	err := c.fetchVehicleLocations(ctx, stop)
	c.finish("buses", stopCode(stop), start, err)
	return err
}

func (c *Client) fetchVehicleLocations(ctx context.Context, stop *model.Stop) error {
	if stop == nil || strings.TrimSpace(stop.Code) == "" {
		return &Error{Kind: Unknown, Op: "buses", Detail: "stop without a code"}
	}
	body, err := c.get(ctx, "buses", "buses", url.Values{"stopNo": {stop.Code}})
	if err != nil {
		return err
	}
	vehicles, err := parseVehicles(body)
	if err != nil {
		return &Error{Kind: MalformedResponse, Op: "buses", Detail: err.Error()}
	}
	stop.AddVehicles(vehicles...)
	return nil
}

// endpoint builds {base}/{path}?{query}&apikey={key}. path must already be
// escaped.
func (c *Client) endpoint(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("apikey", c.apiKey)
	return c.baseURL.String() + "/" + path + "?" + q.Encode()
}

// get performs the request and returns the first line of the response body,
// whatever the status code. Upstream error envelopes on non-2xx responses are
// turned into errors; any other non-2xx body is handed to the parser.
func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	if !c.network.IsConnected() {
		return nil, &Error{Kind: Unreachable, Op: op, Detail: "no network connection"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout+c.readTimeout)
	defer cancel()

	target := c.endpoint(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Kind: Unknown, Op: op, Detail: c.redact(err.Error())}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: classify(err), Op: op, Detail: c.redact(err.Error())}
	}
	defer resp.Body.Close()

	line, err := readFirstLine(resp.Body)
	if err != nil {
		return nil, &Error{Kind: classify(err), Op: op, Detail: c.redact(err.Error())}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg, ok := upstreamError(line); ok {
			return nil, &Error{Kind: Unknown, Op: op, Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg)}
		}
		c.logger.Debug("parsing body of non-2xx response", "op", op, "status", resp.StatusCode)
	}
	return line, nil
}

func readFirstLine(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(io.LimitReader(r, maxBodyBytes))
	line, err := br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = bytes.TrimPrefix(line, []byte("\xef\xbb\xbf"))
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *Client) finish(op, stopID string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err == nil {
		c.metrics.ObserveRequest(op, "ok", elapsed)
		c.logger.Debug("translink request", "op", op, "stop", stopID, "elapsed", elapsed)
		return
	}

	outcome := Unknown.String()
	var apiErr *Error
	if errors.As(err, &apiErr) {
		outcome = apiErr.Kind.String()
		c.logger.Warn("translink request failed", "op", op, "stop", stopID,
			"kind", apiErr.Kind.String(), "error", apiErr.Detail)
	}
	c.metrics.ObserveRequest(op, outcome, elapsed)
}

// redact keeps the api key out of error details, which end up in logs.
func (c *Client) redact(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "REDACTED")
}

func stopCode(s *model.Stop) string {
	if s == nil {
		return ""
	}
	return s.Code
}
