// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the HTTP client for the collector.
//
// [Client] issues the three request kinds (status, time sync, beacon
// upload). Every method returns a parsed response or nil; network
// errors, timeouts, oversized bodies, bodies without the expected
// type= signature, and unparseable values all collapse to nil. Callers
// treat nil as a transient condition and retry on their own schedule,
// so no error crosses this package boundary. Failures are logged.
//
// Beacon payloads are gzip-compressed before upload and carry a
// Content-Encoding: gzip header. The optional client IP override is
// sent as X-Client-IP.
//
// The target URLs depend on the server id and monitor name, which the
// collector may change in any status response. [Client.UpdateEndpoint]
// rebuilds them; requests already in flight keep the URL they started
// with.
package transport
