// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package beacon accumulates one session's telemetry records and cuts
// them into payload chunks for upload.
//
// A record is one &-joined key=value string (an action, a named event,
// a reported value, an error, a crash, a user tag, or a session
// boundary). Records are appended in call order. [Beacon.NextChunk]
// prefixes the session header and moves as many records as fit under
// the size budget into flight; the caller then either commits them
// (the collector accepted the chunk) or restores them to the front of
// the queue for the next attempt.
//
// Whether a record is accepted at all depends on the collector's
// runtime settings (capture, capture errors, capture crashes) and the
// application's data collection and crash reporting levels.
package beacon
