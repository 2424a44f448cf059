// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern that keeps a broken test from hanging forever. They are the
// only place tests use real wall-clock timeouts; everything else runs
// on clock.Fake and advances time explicitly.
//
// All helpers call t.Fatalf on failure.
package testutil
