// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beacon/lib/beacon"
	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/config"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/sender"
	"github.com/bureau-foundation/beacon/lib/session"
	"github.com/bureau-foundation/beacon/lib/settings"
	"github.com/bureau-foundation/beacon/lib/timesync"
	"github.com/bureau-foundation/beacon/lib/transport"
	"github.com/bureau-foundation/beacon/lib/version"
)

// Options configures a Client.
type Options struct {
	// Config is the static configuration. Required; it is validated
	// by New.
	Config *config.Config

	// Clock defaults to the real clock.
	Clock clock.Clock

	// HTTPClient overrides the transport's HTTP client.
	HTTPClient *http.Client

	// Logger is required.
	Logger *slog.Logger

	// SenderTick overrides how often the sender uploads. Zero selects
	// sender.Tick.
	SenderTick time.Duration
}

// Client is one connection to a collector.
type Client struct {
	identity     beacon.Identity
	transport    *transport.Client
	settings     *settings.Runtime
	sessions     *session.Registry
	clusterClock *timesync.ClusterClock
	sender       *sender.Sender
	clock        clock.Clock
	logger       *slog.Logger

	sessionNumbers atomic.Int64
	closed         atomic.Bool
}

// New validates the configuration, builds the client and starts its
// background sender.
func New(options Options) (*Client, error) {
	if options.Config == nil {
		return nil, fmt.Errorf("tagging: config is required")
	}
	if options.Logger == nil {
		panic("tagging.New: Logger is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, fmt.Errorf("tagging: invalid config: %w", err)
	}
	timeout, err := options.Config.Timeout()
	if err != nil {
		return nil, err
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	cfg := options.Config
	logger := options.Logger.With("application", cfg.Application.ID)

	transportClient, err := transport.New(transport.Config{
		Endpoint: protocol.Endpoint{
			BaseURL:       cfg.Collector.Endpoint,
			ApplicationID: cfg.Application.ID,
			ServerID:      cfg.Collector.ServerID,
			AgentVersion:  version.Agent(),
		},
		HTTPClient:         options.HTTPClient,
		Timeout:            timeout,
		InsecureSkipVerify: cfg.Collector.InsecureSkipVerify,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("tagging: %w", err)
	}

	registry := session.NewRegistry()
	runtime := settings.New(settings.Config{
		ServerID: cfg.Collector.ServerID,
		Sessions: registry,
		Endpoint: transportClient,
		Logger:   logger,
	})
	clusterClock := timesync.NewClusterClock()

	client := &Client{
		identity:     cfg.Identity(version.Agent()),
		transport:    transportClient,
		settings:     runtime,
		sessions:     registry,
		clusterClock: clusterClock,
		clock:        clk,
		logger:       logger,
		sender: sender.New(sender.Config{
			Transport:    transportClient,
			Settings:     runtime,
			Sessions:     registry,
			ClusterClock: clusterClock,
			Clock:        clk,
			Logger:       logger,
			Tick:         options.SenderTick,
		}),
	}
	client.sender.Start()
	return client, nil
}

// WaitForInit blocks until the client has talked to the collector
// once, or ctx is done. It reports whether that succeeded.
func (c *Client) WaitForInit(ctx context.Context) bool {
	return c.sender.WaitForInit(ctx)
}

// WaitForInitTimeout is WaitForInit bounded by a duration.
func (c *Client) WaitForInitTimeout(timeout time.Duration) bool {
	return c.sender.WaitForInitTimeout(timeout)
}

// Initialized reports whether initialization has completed
// successfully, without blocking.
func (c *Client) Initialized() bool {
	return c.sender.Initialized()
}

// Capturing reports whether the collector currently accepts data.
func (c *Client) Capturing() bool {
	return c.settings.Capture()
}

// CreateSession starts a new session. clientIP, when non-empty,
// overrides the configured client address for this session. After
// Shutdown it returns an inert session.
func (c *Client) CreateSession(clientIP string) *Session {
	if c.closed.Load() {
		return &Session{inert: true}
	}

	identity := c.identity
	if clientIP != "" {
		identity.ClientIP = clientIP
	}
	number := int(c.sessionNumbers.Add(1))
	sessionBeacon := beacon.New(beacon.Config{
		Identity:      identity,
		SessionNumber: number,
		Settings:      c.settings,
		Clock:         c.clock,
		ClusterClock:  c.clusterClock,
		Logger:        c.logger,
	})
	sessionBeacon.StartSession()

	tracked := session.New(number, sessionBeacon)
	c.sessions.AddOpen(tracked)
	return &Session{client: c, session: tracked}
}

// ClearSessions discards all queued session data without sending it.
func (c *Client) ClearSessions() {
	c.sessions.ClearAll()
}

// Shutdown stops the sender after a final flush of every session. It
// reports whether the sender stopped within its timeout. Later calls
// do nothing and return true.
func (c *Client) Shutdown() bool {
	if !c.closed.CompareAndSwap(false, true) {
		return true
	}
	return c.sender.Shutdown()
}
