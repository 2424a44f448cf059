// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/beacon/lib/netutil"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/version"
)

// DefaultTimeout bounds each collector request when Config.Timeout is
// zero.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// Endpoint is the initial collector endpoint. BaseURL and
	// ApplicationID are required.
	Endpoint protocol.Endpoint

	// HTTPClient overrides the HTTP client. When nil, a client with
	// Timeout and InsecureSkipVerify applied is created.
	HTTPClient *http.Client

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Only
	// for collectors with self-signed certificates in test setups.
	InsecureSkipVerify bool

	// Logger receives request failures. Required.
	Logger *slog.Logger
}

// Client sends requests to the collector. Safe for concurrent use,
// although the sender only calls it from its own goroutine.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   atomic.Pointer[protocol.Endpoint]
}

// New creates a Client. It returns an error when the endpoint is
// incomplete.
func New(config Config) (*Client, error) {
	if config.Endpoint.BaseURL == "" {
		return nil, fmt.Errorf("transport: endpoint base URL is required")
	}
	if config.Endpoint.ApplicationID == "" {
		return nil, fmt.Errorf("transport: application id is required")
	}
	if config.Logger == nil {
		panic("transport.New: Logger is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		roundTripper := http.DefaultTransport.(*http.Transport).Clone()
		if config.InsecureSkipVerify {
			roundTripper.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec opt-in for test collectors
		}
		httpClient = &http.Client{Timeout: timeout, Transport: roundTripper}
	}

	endpoint := config.Endpoint
	if endpoint.AgentVersion == "" {
		endpoint.AgentVersion = version.Agent()
	}

	client := &Client{
		httpClient: httpClient,
		logger:     config.Logger,
	}
	client.endpoint.Store(&endpoint)
	return client, nil
}

// Endpoint returns the endpoint requests are currently sent to.
func (c *Client) Endpoint() protocol.Endpoint {
	return *c.endpoint.Load()
}

// UpdateEndpoint switches subsequent requests to a new server id and
// monitor name. An empty monitor name keeps the current one.
func (c *Client) UpdateEndpoint(serverID int, monitorName string) {
	updated := *c.endpoint.Load()
	updated.ServerID = serverID
	if monitorName != "" {
		updated.MonitorName = monitorName
	}
	c.endpoint.Store(&updated)
	c.logger.Debug("collector endpoint updated",
		"server_id", serverID,
		"monitor_name", updated.MonitorName,
	)
}

// SendStatus requests the current collector settings.
func (c *Client) SendStatus(ctx context.Context) *protocol.StatusResponse {
	body, statusCode, ok := c.do(ctx, http.MethodGet, c.Endpoint().StatusURL(), nil, "")
	if !ok {
		return nil
	}
	return c.decodeStatus(body, statusCode)
}

// SendTimeSync performs one time synchronization round trip.
func (c *Client) SendTimeSync(ctx context.Context) *protocol.TimeSyncResponse {
	body, statusCode, ok := c.do(ctx, http.MethodGet, c.Endpoint().TimeSyncURL(), nil, "")
	if !ok {
		return nil
	}
	decoded, err := protocol.Decode(body, statusCode, protocol.TypeTimeSync)
	if err != nil {
		c.logger.Warn("discarding time sync response", "error", err, "http_status", statusCode)
		return nil
	}
	return decoded.(*protocol.TimeSyncResponse)
}

// SendBeacon uploads one beacon chunk. clientIP, when non-empty, is
// sent as the client IP override.
func (c *Client) SendBeacon(ctx context.Context, clientIP string, payload []byte) *protocol.StatusResponse {
	compressed, err := compress(payload)
	if err != nil {
		c.logger.Warn("compressing beacon failed", "error", err, "size", len(payload))
		return nil
	}
	body, statusCode, ok := c.do(ctx, http.MethodPost, c.Endpoint().StatusURL(), compressed, clientIP)
	if !ok {
		return nil
	}
	return c.decodeStatus(body, statusCode)
}

func (c *Client) decodeStatus(body string, statusCode int) *protocol.StatusResponse {
	decoded, err := protocol.Decode(body, statusCode, protocol.TypeStatus)
	if err != nil {
		c.logger.Warn("discarding status response", "error", err, "http_status", statusCode)
		return nil
	}
	return decoded.(*protocol.StatusResponse)
}

// do performs one request and returns the body and HTTP status. ok is
// false when no usable response arrived.
func (c *Client) do(ctx context.Context, method, target string, payload []byte, clientIP string) (string, int, bool) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.logger.Warn("building collector request failed", "error", err, "url", target)
		return "", 0, false
	}
	request.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		request.Header.Set(protocol.HeaderContentEncoding, "gzip")
		request.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	}
	if clientIP != "" {
		request.Header.Set(protocol.HeaderClientIP, clientIP)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("collector request cancelled", "method", method, "error", err)
		} else {
			c.logger.Warn("collector request failed", "method", method, "error", err)
		}
		return "", 0, false
	}
	defer netutil.DrainAndClose(response)

	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		c.logger.Warn("reading collector response failed",
			"method", method,
			"http_status", response.StatusCode,
			"error", err,
		)
		return "", 0, false
	}
	return strings.TrimSpace(string(data)), response.StatusCode, true
}

// compress gzips payload.
func compress(payload []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(payload); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
