// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bureau-foundation/beacon/lib/beacon"
	"github.com/bureau-foundation/beacon/lib/protocol"
)

// BeaconSender uploads one beacon chunk. It returns nil on failure.
type BeaconSender interface {
	SendBeacon(ctx context.Context, clientIP string, payload []byte) *protocol.StatusResponse
}

// Session is one monitored session.
type Session struct {
	number int
	beacon *beacon.Beacon

	mu  sync.Mutex
	end time.Time
}

// New returns an open session with the given sequence number.
func New(number int, beacon *beacon.Beacon) *Session {
	return &Session{number: number, beacon: beacon}
}

// Number is the session's sequence number within the client.
func (s *Session) Number() int { return s.number }

// Beacon returns the session's record accumulator.
func (s *Session) Beacon() *beacon.Beacon { return s.beacon }

// End records the end of the session at the given time. It returns
// false if the session had already ended.
func (s *Session) End(at time.Time) bool {
	s.mu.Lock()
	if !s.end.IsZero() {
		s.mu.Unlock()
		return false
	}
	s.end = at
	s.mu.Unlock()

	s.beacon.EndSession(at)
	return true
}

// IsEmpty reports whether the session has no unsent records.
func (s *Session) IsEmpty() bool { return s.beacon.IsEmpty() }

// ClearData discards the session's unsent records.
func (s *Session) ClearData() { s.beacon.Clear() }

// Discard drops the session's records, queued and future.
func (s *Session) Discard() { s.beacon.Discard() }

// SendBeacon uploads the session's records chunk by chunk. A chunk's
// records are committed when the collector answers 200 and restored
// otherwise, which also stops the upload. The last non-nil response is
// returned; nil means no chunk got an answer (or nothing was queued).
func (s *Session) SendBeacon(ctx context.Context, sender BeaconSender, maxBeaconSize int) *protocol.StatusResponse {
	var last *protocol.StatusResponse
	for {
		chunk := s.beacon.NextChunk(maxBeaconSize)
		if chunk == nil {
			return last
		}
		response := sender.SendBeacon(ctx, s.beacon.ClientIP(), chunk)
		if response != nil {
			last = response
		}
		if response == nil || response.StatusCode != http.StatusOK {
			s.beacon.RestoreChunk()
			return last
		}
		s.beacon.CommitChunk()
	}
}
