// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the beacon binaries:
// fatal error reporting before a logger exists, and construction of
// the structured logger every binary writes to stderr.
package process
