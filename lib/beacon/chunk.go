// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"slices"
	"strings"
)

// ChunkBudget returns the byte budget for one chunk given the
// collector's maximum beacon size.
func ChunkBudget(maxBeaconSize int) int {
	if maxBeaconSize > ChunkMargin {
		return maxBeaconSize - ChunkMargin
	}
	return maxBeaconSize
}

// NextChunk cuts the next payload of at most ChunkBudget(maxBeaconSize)
// bytes: the header followed by as many queued records as fit, in
// order. The records move into flight until CommitChunk or
// RestoreChunk. It returns nil when nothing is queued.
//
// A record that cannot fit even alone after the header is dropped and
// logged. An uncommitted chunk from a previous call is restored first.
func (b *Beacon) NextChunk(maxBeaconSize int) []byte {
	budget := ChunkBudget(maxBeaconSize)
	header := b.header()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.restoreLocked()

	var chunk strings.Builder
	chunk.WriteString(header)
	var taken []string
	remaining := b.records
	for len(remaining) > 0 {
		record := remaining[0]
		if chunk.Len()+1+len(record) > budget {
			if len(taken) > 0 {
				break
			}
			b.logger.Warn("dropping beacon record larger than chunk budget",
				"record_bytes", len(record),
				"header_bytes", len(header),
				"budget", budget,
			)
			remaining = remaining[1:]
			continue
		}
		chunk.WriteByte('&')
		chunk.WriteString(record)
		taken = append(taken, record)
		remaining = remaining[1:]
	}
	b.records = remaining
	if len(taken) == 0 {
		return nil
	}
	b.inFlight = taken
	return []byte(chunk.String())
}

// CommitChunk discards the records of the last chunk after the
// collector accepted it.
func (b *Beacon) CommitChunk() {
	b.mu.Lock()
	b.inFlight = nil
	b.mu.Unlock()
}

// RestoreChunk returns the records of the last chunk to the front of
// the queue, ahead of anything recorded since.
func (b *Beacon) RestoreChunk() {
	b.mu.Lock()
	b.restoreLocked()
	b.mu.Unlock()
}

func (b *Beacon) restoreLocked() {
	if len(b.inFlight) == 0 {
		return
	}
	b.records = append(slices.Clone(b.inFlight), b.records...)
	b.inFlight = nil
}
