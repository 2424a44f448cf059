// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timesync estimates the offset between the local clock and
// the collector's clock ("cluster time").
//
// A [Synchronizer] performs repeated round trips. For each, the local
// send time t0 and receive time t3 bracket the collector's receive
// time t1 and send time t2, giving one offset sample
//
//	((t1 - t0) + (t2 - t3)) / 2
//
// Five samples are required. [EstimateOffset] takes the median,
// computes the variance of the samples around it, and averages only
// the samples whose squared deviation from the median is within that
// variance, so a single slow round trip cannot skew the result.
//
// If five samples cannot be collected the collector is treated as not
// supporting time sync: the [ClusterClock] is pinned to a zero offset
// and cluster time equals local time from then on.
package timesync
