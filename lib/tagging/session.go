// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tagging

import (
	"slices"
	"sync"

	"github.com/bureau-foundation/beacon/lib/session"
)

// Session is one monitored unit of work. Safe for concurrent use.
type Session struct {
	client  *Client
	session *session.Session

	// inert sessions were created after Shutdown and record nothing.
	inert bool

	mu      sync.Mutex
	ended   bool
	actions []*Action
}

// EnterAction opens a top-level action.
func (s *Session) EnterAction(name string) *Action {
	if s.inert {
		return &Action{inert: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return &Action{inert: true}
	}
	action := newAction(s, nil, name)
	s.actions = append(s.actions, action)
	return action
}

// IdentifyUser tags the session with a user identifier.
func (s *Session) IdentifyUser(tag string) {
	if s.isDone() {
		return
	}
	s.session.Beacon().IdentifyUser(tag)
}

// ReportCrash records a crash. A crash ends the session.
func (s *Session) ReportCrash(name, reason, stacktrace string) {
	if s.isDone() {
		return
	}
	s.session.Beacon().ReportCrash(name, reason, stacktrace)
	s.End()
}

// End leaves all open actions, records the session end and hands the
// session to the sender for upload.
func (s *Session) End() {
	if s.inert {
		return
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	open := slices.Clone(s.actions)
	s.actions = nil
	s.mu.Unlock()

	for _, action := range open {
		action.Leave()
	}
	if s.session.End(s.client.clock.Now()) && !s.client.sessions.MoveToFinished(s.session) {
		// Cleared while open; nothing will flush it.
		s.session.ClearData()
	}
}

func (s *Session) isDone() bool {
	if s.inert {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) removeAction(action *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index := slices.Index(s.actions, action); index >= 0 {
		s.actions = slices.Delete(s.actions, index, index+1)
	}
}
