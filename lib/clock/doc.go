// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the beacon sender.
//
// The sender never calls time.Now or time.After directly.
// It holds a Clock, which is Real() in production and Fake() in tests.
// Every wait in the sender (the capture-on tick, the capture-off status
// interval, retry backoff, the shutdown join) goes through After so that
// a test can step the state machine forward deterministically:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := sender.New(sender.Config{Clock: fake, ...})
//	s.Start()
//	fake.WaitForTimers(1)       // sender is now parked in a sleep
//	fake.Advance(time.Second)   // release it
//
// WaitForTimers closes the race between a goroutine registering a wait
// and the test advancing the clock past it.
package clock
