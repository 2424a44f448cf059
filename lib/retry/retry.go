// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry provides the backoff schedule and the interruptible
// wait shared by the sender's retry loops.
//
// The schedule is a plain doubling sequence without jitter: 1s, 2s,
// 4s, ... capped at MaxDelay.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bureau-foundation/beacon/lib/clock"
)

// MaxDelay caps a single backoff step.
const MaxDelay = 2 * time.Hour

// NewBackOff returns a doubling backoff starting at initial. The
// schedule never stops on its own; callers bound it by attempt count.
func NewBackOff(clk clock.Clock, initial time.Duration) *backoff.ExponentialBackOff {
	schedule := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               clk,
	}
	schedule.Reset()
	return schedule
}

// Wait blocks for d on clk, returning early when ctx is done. It
// returns true if the full duration elapsed.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	select {
	case <-clk.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
