// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
)

// state is one node of the machine. execute runs on the loop goroutine
// and returns the next state.
type state interface {
	execute(c *sendingContext) state

	// shutdownState is where the machine goes when shutdown was
	// requested during execute.
	shutdownState() state

	// onInterrupted runs before the shutdown transition.
	onInterrupted(c *sendingContext)

	terminal() bool
	String() string
}

// initState fetches the collector's settings.
type initState struct{}

func (initState) execute(c *sendingContext) state {
	response := c.sendStatusRequest(StatusRetries)
	if response == nil {
		if !c.shutdownRequested() {
			c.logger.Error("beacon sender initialization failed: no status response from collector",
				"attempts", StatusRetries+1,
			)
		}
		c.finishInit(false)
		return terminalState{}
	}
	c.lastStatusCheck = c.clock.Now()
	c.settings.UpdateFromStatusResponse(response)
	return timeSyncState{initial: true}
}

func (initState) shutdownState() state { return terminalState{} }

func (initState) onInterrupted(c *sendingContext) { c.finishInit(false) }

func (initState) terminal() bool { return false }

func (initState) String() string { return "init" }

// timeSyncState measures the offset to the collector's clock. The
// initial sync releases WaitForInit whatever its outcome.
type timeSyncState struct {
	initial bool
}

func (s timeSyncState) execute(c *sendingContext) state {
	if !s.initial {
		if !c.clusterClock.Supported() || c.clock.Now().Sub(c.lastTimeSync) < TimeSyncInterval {
			return c.nextCaptureState()
		}
	}

	result := c.synchronizer.Run(c.shutdownCtx, c.transport, s.initial)
	// Requests cut short by shutdown say nothing about collector support.
	if result.Abandoned || c.shutdownRequested() {
		return s.shutdownState()
	}
	c.lastTimeSync = c.clock.Now()

	if !result.Supported {
		c.clusterClock.MarkUnsupported()
		c.settings.DisableCapture()
		if s.initial {
			c.finishInit(true)
		}
		return captureOffState{}
	}

	c.clusterClock.SetOffset(result.Offset)
	if s.initial {
		c.finishInit(true)
	}
	return c.nextCaptureState()
}

func (s timeSyncState) shutdownState() state {
	if s.initial {
		return terminalState{}
	}
	return flushSessionsState{}
}

func (s timeSyncState) onInterrupted(c *sendingContext) {
	if s.initial {
		c.finishInit(false)
	}
}

func (timeSyncState) terminal() bool { return false }

func (timeSyncState) String() string { return "time-sync" }

// captureOnState is the steady state: upload, apply the collector's
// answer, repeat.
type captureOnState struct{}

func (captureOnState) execute(c *sendingContext) state {
	if c.clusterClock.Supported() && c.clock.Now().Sub(c.lastTimeSync) >= TimeSyncInterval {
		return timeSyncState{}
	}
	if !c.sleep(c.tick) {
		return captureOnState{}
	}

	last := c.flushFinishedSessions(c.shutdownCtx)

	now := c.clock.Now()
	if now.Sub(c.lastOpenSessionFlush) >= c.settings.SendInterval() {
		if response := c.flushOpenSessions(c.shutdownCtx); response != nil {
			last = response
		}
		c.lastOpenSessionFlush = now
	}

	if last != nil {
		c.settings.UpdateFromStatusResponse(last)
	}
	if !c.settings.Capture() {
		return captureOffState{}
	}
	return captureOnState{}
}

func (captureOnState) shutdownState() state { return flushSessionsState{} }

func (captureOnState) onInterrupted(*sendingContext) {}

func (captureOnState) terminal() bool { return false }

func (captureOnState) String() string { return "capture-on" }

// captureOffState discards data and polls the collector until capture
// comes back.
type captureOffState struct{}

func (captureOffState) execute(c *sendingContext) state {
	c.sessions.ClearAll()

	wait := StatusCheckInterval - c.clock.Now().Sub(c.lastStatusCheck)
	if wait > 0 && !c.sleep(wait) {
		return captureOffState{}
	}

	response := c.sendStatusRequest(StatusRetries)
	if response == nil && c.shutdownRequested() {
		return captureOffState{}
	}
	c.lastStatusCheck = c.clock.Now()
	c.settings.UpdateFromStatusResponse(response)

	if c.settings.Capture() {
		return timeSyncState{}
	}
	return captureOffState{}
}

func (captureOffState) shutdownState() state { return flushSessionsState{} }

func (captureOffState) onInterrupted(*sendingContext) {}

func (captureOffState) terminal() bool { return false }

func (captureOffState) String() string { return "capture-off" }

// flushSessionsState is the last stop before terminal: end every open
// session and try each finished session once.
type flushSessionsState struct{}

func (flushSessionsState) execute(c *sendingContext) state {
	c.logger.Debug("final session flush",
		"open", c.sessions.OpenCount(),
		"finished", c.sessions.FinishedCount(),
		"capture", c.settings.Capture(),
	)
	now := c.clock.Now()
	for _, open := range c.sessions.SnapshotOpen() {
		open.End(now)
		c.sessions.MoveToFinished(open)
	}

	if !c.settings.Capture() {
		c.sessions.ClearAll()
		return terminalState{}
	}

	// The shutdown context is already cancelled; uploads get their own.
	ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()

	sent, failed := 0, 0
	for finished := c.sessions.DrainFinished(); finished != nil; finished = c.sessions.DrainFinished() {
		finished.SendBeacon(ctx, c.transport, c.settings.MaxBeaconSize())
		if finished.IsEmpty() {
			sent++
		} else {
			failed++
			finished.ClearData()
		}
	}
	c.logger.Debug("final session flush complete", "sent", sent, "discarded", failed)
	return terminalState{}
}

func (flushSessionsState) shutdownState() state { return terminalState{} }

func (flushSessionsState) onInterrupted(*sendingContext) {}

func (flushSessionsState) terminal() bool { return false }

func (flushSessionsState) String() string { return "flush-sessions" }

// terminalState ends the loop.
type terminalState struct{}

func (terminalState) execute(*sendingContext) state { return terminalState{} }

func (terminalState) shutdownState() state { return terminalState{} }

func (terminalState) onInterrupted(*sendingContext) {}

func (terminalState) terminal() bool { return true }

func (terminalState) String() string { return "terminal" }
