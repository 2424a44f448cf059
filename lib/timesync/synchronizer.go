// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timesync

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/retry"
)

// Defaults for Synchronizer.
const (
	RequiredSamples   = 5
	MaxRetries        = 5
	InitialRetryDelay = 1 * time.Second
)

// Requester performs one time sync round trip. It returns nil on any
// failure.
type Requester interface {
	SendTimeSync(ctx context.Context) *protocol.TimeSyncResponse
}

// Result is the outcome of a synchronization run.
type Result struct {
	// Offset is the estimated offset in milliseconds; zero unless
	// Supported.
	Offset int64

	// Supported is true when RequiredSamples round trips succeeded.
	Supported bool

	// Abandoned is true when a non-initial run stopped early because
	// its context was cancelled. An abandoned result says nothing
	// about collector support and should be discarded.
	Abandoned bool

	// Samples are the raw per-round-trip offsets.
	Samples []int64
}

// Synchronizer runs the round-trip loop.
type Synchronizer struct {
	Clock  clock.Clock
	Logger *slog.Logger

	// Zero values select the package defaults.
	RequiredSamples   int
	MaxRetries        int
	InitialRetryDelay time.Duration
}

// Run collects samples until RequiredSamples succeed or MaxRetries
// consecutive round trips fail. Failures back off 1s, 2s, 4s, ...;
// any success resets both the backoff and the failure count.
//
// When initial is false, cancelling ctx abandons the run. When initial
// is true the run is never abandoned: cancellation only cuts the
// backoff sleeps short (and fails the requests), so the run ends with
// an explicit unsupported result instead of an open question.
func (s *Synchronizer) Run(ctx context.Context, requester Requester, initial bool) Result {
	required := valueOr(s.RequiredSamples, RequiredSamples)
	maxRetries := valueOr(s.MaxRetries, MaxRetries)
	initialDelay := s.InitialRetryDelay
	if initialDelay == 0 {
		initialDelay = InitialRetryDelay
	}

	schedule := retry.NewBackOff(s.Clock, initialDelay)
	samples := make([]int64, 0, required)
	failures := 0

	for len(samples) < required && failures < maxRetries {
		if !initial && ctx.Err() != nil {
			s.Logger.Debug("time sync abandoned for shutdown", "samples", len(samples))
			return Result{Abandoned: true, Samples: samples}
		}

		localSend := clock.Millis(s.Clock.Now())
		response := requester.SendTimeSync(ctx)
		localReceive := clock.Millis(s.Clock.Now())

		if response.Valid() && response.StatusCode == http.StatusOK {
			samples = append(samples, Sample(localSend, response.RequestReceiveTime, response.ResponseSendTime, localReceive))
			failures = 0
			schedule.Reset()
			continue
		}

		failures++
		if failures < maxRetries {
			retry.Wait(ctx, s.Clock, schedule.NextBackOff())
		}
	}

	if len(samples) < required {
		s.Logger.Info("time sync unsupported, using local time",
			"samples", len(samples),
			"required", required,
		)
		return Result{Supported: false, Samples: samples}
	}

	offset := EstimateOffset(samples)
	s.Logger.Debug("time sync complete", "offset_ms", offset, "samples", samples)
	return Result{Offset: offset, Supported: true, Samples: samples}
}

func valueOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
