// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers for talking to the
// collector.
//
// Collector responses are short key=value strings. ReadResponse bounds
// every body read at MaxResponseSize so that a misrouted request (a
// proxy error page, a redirect to a download) cannot make the sender
// buffer an unbounded body in memory. DrainAndClose returns the
// connection to the pool after a response is no longer needed.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseSize bounds collector response reads: 64 KB. Real
// responses are well under 1 KB.
const MaxResponseSize int64 = 64 << 10

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadResponse reads a response body up to MaxResponseSize bytes. A
// body longer than the limit is an error rather than being silently
// truncated, since a truncated key=value stream would parse into the
// wrong settings.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// DrainAndClose discards up to MaxResponseSize remaining bytes of the
// response body and closes it so the transport can reuse the
// connection.
func DrainAndClose(response *http.Response) {
	if response == nil || response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, MaxResponseSize))
	response.Body.Close()
}
