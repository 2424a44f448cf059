// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"slices"
	"sync"
)

// Registry tracks open and finished sessions. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	open     []*Session
	finished []*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddOpen registers a newly started session.
func (r *Registry) AddOpen(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.open, session) || slices.Contains(r.finished, session) {
		return
	}
	r.open = append(r.open, session)
}

// MoveToFinished moves a session from open to finished. It returns
// false if the session was not open (already finished, or dropped by
// ClearAll).
func (r *Registry) MoveToFinished(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := slices.Index(r.open, session)
	if index < 0 {
		return false
	}
	r.open = slices.Delete(r.open, index, index+1)
	r.finished = append(r.finished, session)
	return true
}

// DrainFinished removes and returns the oldest finished session, or
// nil when none is left.
func (r *Registry) DrainFinished() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.finished) == 0 {
		return nil
	}
	session := r.finished[0]
	r.finished[0] = nil
	r.finished = r.finished[1:]
	return session
}

// PushBackFinished returns a drained session whose upload failed to
// the front of the finished bucket.
func (r *Registry) PushBackFinished(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append([]*Session{session}, r.finished...)
}

// SnapshotOpen returns the open sessions in the order they started.
func (r *Registry) SnapshotOpen() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.open)
}

// ClearAll discards every session and its unsent data. Open sessions
// stay usable by their owners but record nothing from now on.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	open, finished := r.open, r.finished
	r.open, r.finished = nil, nil
	r.mu.Unlock()

	for _, session := range open {
		session.Discard()
	}
	for _, session := range finished {
		session.Discard()
	}
}

// OpenCount returns the number of open sessions.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// FinishedCount returns the number of finished sessions waiting to be
// sent.
func (r *Registry) FinishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finished)
}
