// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the collector wire format: request URLs,
// response parsing, and the key=value text encoding shared by beacons
// and responses.
//
// The collector serves one path per monitor name. Requests are told
// apart by the type query parameter:
//
//	type=m    status request (GET) and beacon upload (POST)
//	type=mts  time synchronization (GET)
//
// Responses are &-delimited key=value token streams. The first token
// names the response kind ("type=m" or "type=mts"); a body that starts
// with anything else is not a collector response and is rejected. The
// HTTP status code is not used to decide the kind because status and
// beacon requests share an endpoint and response shape.
package protocol
