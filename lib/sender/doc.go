// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sender runs the background state machine that moves session
// data to the collector.
//
// One goroutine executes the current state in a loop until it reaches
// the terminal state:
//
//	init ──► time-sync(initial) ──► capture-on ◄──► capture-off
//	  │            │                    │               │
//	  ▼            ▼                    ▼               ▼
//	terminal ◄─────┘            flush-sessions ◄────────┘
//	                                    │
//	                                    ▼
//	                                terminal
//
// Init fetches the collector's settings; the initial time sync
// measures the clock offset and releases [Sender.WaitForInit].
// Capture-on wakes once per tick to upload finished sessions (and
// open sessions once per send interval), re-syncing the clock every
// two hours. Capture-off discards session data and polls the collector
// until it turns capture back on.
//
// Shutdown is cooperative. [Sender.RequestShutdown] cancels the
// context every regular state sleeps and sends on, and after each
// state executes the loop replaces whatever transition it chose with
// the state's shutdown state: terminal for init and the initial sync,
// flush-sessions for everything else. Flush-sessions ends the open
// sessions and makes one upload attempt per session on a fresh
// context bounded by the drain timeout.
package sender
