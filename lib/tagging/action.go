// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tagging

import (
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/beacon/lib/beacon"
)

// Action is a timed operation within a session. Actions nest: a child
// is left automatically when its parent is. Safe for concurrent use.
type Action struct {
	session *Session
	parent  *Action
	inert   bool

	id            int64
	name          string
	start         time.Time
	startSequence int64

	mu       sync.Mutex
	left     bool
	children []*Action
}

func newAction(session *Session, parent *Action, name string) *Action {
	sessionBeacon := session.session.Beacon()
	action := &Action{
		session:       session,
		parent:        parent,
		id:            sessionBeacon.NextActionID(),
		name:          name,
		start:         session.client.clock.Now(),
		startSequence: sessionBeacon.NextSequence(),
	}
	return action
}

func (a *Action) beacon() *beacon.Beacon {
	return a.session.session.Beacon()
}

func (a *Action) isLeft() bool {
	if a.inert {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.left
}

// ID is the action's id within its session; zero for inert actions.
func (a *Action) ID() int64 { return a.id }

// EnterAction opens a child action.
func (a *Action) EnterAction(name string) *Action {
	if a.inert {
		return a
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.left {
		return &Action{inert: true}
	}
	child := newAction(a.session, a, name)
	a.children = append(a.children, child)
	return child
}

// ReportEvent records a named event.
func (a *Action) ReportEvent(name string) *Action {
	if !a.isLeft() {
		a.beacon().ReportEvent(a.id, name)
	}
	return a
}

// ReportIntValue records an integer value.
func (a *Action) ReportIntValue(name string, value int64) *Action {
	if !a.isLeft() {
		a.beacon().ReportIntValue(a.id, name, value)
	}
	return a
}

// ReportFloatValue records a floating point value.
func (a *Action) ReportFloatValue(name string, value float64) *Action {
	if !a.isLeft() {
		a.beacon().ReportFloatValue(a.id, name, value)
	}
	return a
}

// ReportStringValue records a string value.
func (a *Action) ReportStringValue(name, value string) *Action {
	if !a.isLeft() {
		a.beacon().ReportStringValue(a.id, name, value)
	}
	return a
}

// ReportError records an error with a numeric code.
func (a *Action) ReportError(name string, code int, reason string) *Action {
	if !a.isLeft() {
		a.beacon().ReportError(a.id, name, code, reason)
	}
	return a
}

// Leave ends the action, and any children still open, and returns the
// parent action (nil for a top-level action).
func (a *Action) Leave() *Action {
	if a.inert {
		return nil
	}
	a.mu.Lock()
	if a.left {
		a.mu.Unlock()
		return a.parent
	}
	a.left = true
	children := slices.Clone(a.children)
	a.children = nil
	a.mu.Unlock()

	for _, child := range children {
		child.Leave()
	}

	sessionBeacon := a.beacon()
	var parentID int64
	if a.parent != nil {
		parentID = a.parent.id
		a.parent.removeChild(a)
	} else {
		a.session.removeAction(a)
	}
	sessionBeacon.AddAction(beacon.Action{
		ID:            a.id,
		ParentID:      parentID,
		Name:          a.name,
		Start:         a.start,
		End:           a.session.client.clock.Now(),
		StartSequence: a.startSequence,
		EndSequence:   sessionBeacon.NextSequence(),
	})
	return a.parent
}

func (a *Action) removeChild(child *Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index := slices.Index(a.children, child); index >= 0 {
		a.children = slices.Delete(a.children, index, index+1)
	}
}
