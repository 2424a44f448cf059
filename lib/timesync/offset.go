// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timesync

import (
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
)

// EstimateOffset returns the outlier-filtered mean of samples, in
// milliseconds. It returns 0 for an empty slice.
func EstimateOffset(samples []int64) int64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	median := float64(sorted[len(sorted)/2])

	var sumSquares float64
	for _, sample := range sorted {
		deviation := float64(sample) - median
		sumSquares += deviation * deviation
	}
	variance := sumSquares / float64(len(sorted))

	var sum float64
	var count int
	for _, sample := range sorted {
		deviation := float64(sample) - median
		if deviation*deviation <= variance {
			sum += float64(sample)
			count++
		}
	}
	return int64(math.Round(sum / float64(count)))
}

// Sample computes one round trip's offset from local send/receive
// times and the collector's receive/send times, all in milliseconds.
func Sample(localSend, collectorReceive, collectorSend, localReceive int64) int64 {
	return ((collectorReceive - localSend) + (collectorSend - localReceive)) / 2
}

// ClusterClock converts local timestamps to collector time. Safe for
// concurrent use: the sender writes it, beacons read it.
type ClusterClock struct {
	offset    atomic.Int64
	supported atomic.Bool
}

// NewClusterClock returns a clock with zero offset that has not yet
// been marked unsupported.
func NewClusterClock() *ClusterClock {
	clusterClock := &ClusterClock{}
	clusterClock.supported.Store(true)
	return clusterClock
}

// SetOffset records a measured offset in milliseconds. It is ignored
// once the clock is marked unsupported.
func (c *ClusterClock) SetOffset(offset int64) {
	if !c.supported.Load() {
		return
	}
	c.offset.Store(offset)
}

// MarkUnsupported pins the offset to zero permanently.
func (c *ClusterClock) MarkUnsupported() {
	c.supported.Store(false)
	c.offset.Store(0)
}

// Supported reports whether the collector supports time sync.
func (c *ClusterClock) Supported() bool { return c.supported.Load() }

// Offset returns the current offset in milliseconds.
func (c *ClusterClock) Offset() int64 { return c.offset.Load() }

// ClusterMillis converts a local time to cluster Unix milliseconds.
func (c *ClusterClock) ClusterMillis(local time.Time) int64 {
	return clock.Millis(local) + c.offset.Load()
}

// ClusterTime converts a local time to cluster time.
func (c *ClusterClock) ClusterTime(local time.Time) time.Time {
	return local.Add(time.Duration(c.offset.Load()) * time.Millisecond)
}
