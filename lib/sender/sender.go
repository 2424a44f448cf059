// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/session"
	"github.com/bureau-foundation/beacon/lib/settings"
	"github.com/bureau-foundation/beacon/lib/timesync"
)

// Timing defaults.
const (
	// Tick is how long capture-on sleeps between flush passes.
	Tick = 1 * time.Second

	// TimeSyncInterval is how often capture-on re-syncs the clock.
	TimeSyncInterval = 2 * time.Hour

	// StatusCheckInterval is how often capture-off polls the collector.
	StatusCheckInterval = 2 * time.Hour

	// StatusRetries bounds the retries of one status request; the
	// backoff between them starts at InitialRetryDelay and doubles.
	StatusRetries     = 5
	InitialRetryDelay = 1 * time.Second

	// ShutdownTimeout bounds how long Shutdown waits for the loop.
	ShutdownTimeout = 10 * time.Second

	// DrainTimeout bounds the uploads of the final flush.
	DrainTimeout = 10 * time.Second
)

// Transport is the collector client the sender drives.
type Transport interface {
	SendStatus(ctx context.Context) *protocol.StatusResponse
	SendTimeSync(ctx context.Context) *protocol.TimeSyncResponse
	SendBeacon(ctx context.Context, clientIP string, payload []byte) *protocol.StatusResponse
}

// Config configures a Sender. All fields except the timing overrides
// are required.
type Config struct {
	Transport    Transport
	Settings     *settings.Runtime
	Sessions     *session.Registry
	ClusterClock *timesync.ClusterClock
	Clock        clock.Clock
	Logger       *slog.Logger

	// Zero values select Tick and DrainTimeout.
	Tick         time.Duration
	DrainTimeout time.Duration
}

// Sender owns the background goroutine.
type Sender struct {
	context *sendingContext
	cancel  context.CancelFunc
	done    chan struct{}

	startOnce sync.Once
}

// New returns a Sender in the init state. Call Start to run it.
func New(config Config) *Sender {
	if config.Transport == nil || config.Settings == nil || config.Sessions == nil || config.ClusterClock == nil {
		panic("sender.New: Transport, Settings, Sessions and ClusterClock are required")
	}
	if config.Clock == nil {
		panic("sender.New: Clock is required")
	}
	if config.Logger == nil {
		panic("sender.New: Logger is required")
	}

	tick := config.Tick
	if tick == 0 {
		tick = Tick
	}
	drainTimeout := config.DrainTimeout
	if drainTimeout == 0 {
		drainTimeout = DrainTimeout
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	sendingContext := &sendingContext{
		transport:    config.Transport,
		settings:     config.Settings,
		sessions:     config.Sessions,
		clusterClock: config.ClusterClock,
		clock:        config.Clock,
		logger:       config.Logger,
		synchronizer: &timesync.Synchronizer{
			Clock:  config.Clock,
			Logger: config.Logger,
		},
		tick:         tick,
		drainTimeout: drainTimeout,
		shutdownCtx:  shutdownCtx,
		initDone:     make(chan struct{}),
	}
	sendingContext.setState(initState{})

	return &Sender{
		context: sendingContext,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches the background goroutine. Subsequent calls do
// nothing.
func (s *Sender) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Sender) run() {
	defer close(s.done)
	c := s.context
	for !c.current().terminal() {
		c.executeCurrentState()
	}
	// Waiters must not block on a machine that ended before its
	// initial sync.
	c.finishInit(false)
	c.logger.Debug("beacon sender stopped")
}

// RequestShutdown asks the loop to stop. It does not wait.
func (s *Sender) RequestShutdown() {
	s.cancel()
}

// WaitForInit blocks until the initial status request and time sync
// have finished, or ctx is done. It reports whether initialization
// succeeded.
func (s *Sender) WaitForInit(ctx context.Context) bool {
	select {
	case <-s.context.initDone:
		return s.context.initSucceeded.Load()
	case <-ctx.Done():
		return false
	}
}

// WaitForInitTimeout is WaitForInit bounded by a duration on the
// sender's clock.
func (s *Sender) WaitForInitTimeout(timeout time.Duration) bool {
	select {
	case <-s.context.initDone:
		return s.context.initSucceeded.Load()
	case <-s.context.clock.After(timeout):
		return false
	}
}

// Initialized reports whether initialization completed successfully.
// It does not block.
func (s *Sender) Initialized() bool {
	select {
	case <-s.context.initDone:
		return s.context.initSucceeded.Load()
	default:
		return false
	}
}

// Shutdown requests shutdown and waits up to ShutdownTimeout for the
// loop to finish its final flush. It reports whether the loop stopped
// in time; on false the goroutine is left to finish on its own.
func (s *Sender) Shutdown() bool {
	s.RequestShutdown()
	s.startOnce.Do(func() {
		s.context.setState(terminalState{})
		s.context.finishInit(false)
		close(s.done)
	})

	select {
	case <-s.done:
		return true
	case <-s.context.clock.After(ShutdownTimeout):
		s.context.logger.Warn("beacon sender did not stop within shutdown timeout",
			"timeout", ShutdownTimeout,
			"state", s.State(),
		)
		return false
	}
}

// Done is closed when the loop has reached the terminal state.
func (s *Sender) Done() <-chan struct{} {
	return s.done
}

// State returns the name of the current state.
func (s *Sender) State() string {
	return s.context.current().String()
}
