// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session holds the sender's view of monitored sessions: each
// [Session] owns a beacon of pending records, and the [Registry] keeps
// every session in exactly one of two buckets, open or finished.
//
// Application goroutines add sessions and move them to finished when
// they end. The sender goroutine drains the finished bucket, snapshots
// the open bucket for periodic flushes, and clears both when the
// collector turns capture off. Each registry operation takes the lock
// once; no operation holds it across network I/O.
package session
