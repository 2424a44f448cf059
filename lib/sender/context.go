// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/retry"
	"github.com/bureau-foundation/beacon/lib/session"
	"github.com/bureau-foundation/beacon/lib/settings"
	"github.com/bureau-foundation/beacon/lib/timesync"
)

// sendingContext is the state shared by every state of the machine.
// Everything except state, the init latch and the shutdown context is
// touched only by the loop goroutine.
type sendingContext struct {
	transport    Transport
	settings     *settings.Runtime
	sessions     *session.Registry
	clusterClock *timesync.ClusterClock
	clock        clock.Clock
	logger       *slog.Logger
	synchronizer *timesync.Synchronizer

	tick         time.Duration
	drainTimeout time.Duration

	state atomic.Pointer[stateHolder]

	lastOpenSessionFlush time.Time
	lastStatusCheck      time.Time
	lastTimeSync         time.Time

	// shutdownCtx is cancelled by RequestShutdown.
	shutdownCtx context.Context

	initOnce      sync.Once
	initDone      chan struct{}
	initSucceeded atomic.Bool
}

// stateHolder boxes a state so it can live in an atomic.Pointer.
type stateHolder struct{ state state }

func (c *sendingContext) current() state {
	return c.state.Load().state
}

func (c *sendingContext) setState(next state) {
	c.state.Store(&stateHolder{state: next})
}

// executeCurrentState runs one step. If shutdown was requested while
// the state ran, its own transition is replaced by its shutdown state.
func (c *sendingContext) executeCurrentState() {
	current := c.current()
	next := current.execute(c)

	if c.shutdownRequested() {
		current.onInterrupted(c)
		next = current.shutdownState()
	}
	if next.String() != current.String() {
		c.logger.Debug("beacon sender state change", "from", current.String(), "to", next.String())
	}
	c.setState(next)
}

func (c *sendingContext) shutdownRequested() bool {
	return c.shutdownCtx.Err() != nil
}

// sleep waits for d on the injected clock. It returns false if shutdown
// cut the wait short.
func (c *sendingContext) sleep(d time.Duration) bool {
	return retry.Wait(c.shutdownCtx, c.clock, d)
}

// finishInit releases WaitForInit callers. Only the first call counts.
func (c *sendingContext) finishInit(success bool) {
	c.initOnce.Do(func() {
		c.initSucceeded.Store(success)
		close(c.initDone)
	})
}

// sendStatusRequest issues a status request, retrying up to retries
// times with a doubling backoff. It gives up early on shutdown.
func (c *sendingContext) sendStatusRequest(retries int) *protocol.StatusResponse {
	schedule := retry.NewBackOff(c.clock, InitialRetryDelay)
	for attempt := 0; ; attempt++ {
		response := c.transport.SendStatus(c.shutdownCtx)
		if response != nil || attempt >= retries {
			return response
		}
		delay := schedule.NextBackOff()
		c.logger.Debug("status request failed, retrying", "attempt", attempt+1, "delay", delay)
		if !c.sleep(delay) {
			return nil
		}
	}
}

// nextCaptureState picks the steady state matching the capture flag.
func (c *sendingContext) nextCaptureState() state {
	if c.settings.Capture() {
		return captureOnState{}
	}
	return captureOffState{}
}

// flushFinishedSessions uploads finished sessions oldest first. A
// session that still holds data after its upload goes back to the
// front of the queue and ends the pass. It returns the last response
// received.
func (c *sendingContext) flushFinishedSessions(ctx context.Context) *protocol.StatusResponse {
	var last *protocol.StatusResponse
	for finished := c.sessions.DrainFinished(); finished != nil; finished = c.sessions.DrainFinished() {
		response := finished.SendBeacon(ctx, c.transport, c.settings.MaxBeaconSize())
		if response != nil {
			last = response
		}
		if !finished.IsEmpty() {
			c.sessions.PushBackFinished(finished)
			break
		}
	}
	return last
}

// flushOpenSessions uploads what the open sessions have recorded so
// far. It returns the last response received.
func (c *sendingContext) flushOpenSessions(ctx context.Context) *protocol.StatusResponse {
	var last *protocol.StatusResponse
	for _, open := range c.sessions.SnapshotOpen() {
		response := open.SendBeacon(ctx, c.transport, c.settings.MaxBeaconSize())
		if response != nil {
			last = response
		}
	}
	return last
}
