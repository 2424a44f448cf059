// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
)

// EventType is the et value of a record.
type EventType int

const (
	EventAction       EventType = 1
	EventNamed        EventType = 10
	EventValueString  EventType = 11
	EventValueInt     EventType = 12
	EventValueFloat   EventType = 13
	EventSessionStart EventType = 18
	EventSessionEnd   EventType = 19
	EventError        EventType = 40
	EventCrash        EventType = 50
	EventIdentifyUser EventType = 60
)

// Action is a completed timed action as recorded in the beacon.
type Action struct {
	ID            int64
	ParentID      int64
	Name          string
	Start         time.Time
	End           time.Time
	StartSequence int64
	EndSequence   int64
}

func (b *Beacon) capturing(level DataCollectionLevel) bool {
	return b.settings.Capture() && b.identity.DataCollection >= level
}

// eventWriter starts a record with the fields shared by every event.
func (b *Beacon) eventWriter(eventType EventType, name string, parentID int64, at time.Time) *protocol.PairWriter {
	w := &protocol.PairWriter{}
	w.Int("et", int64(eventType))
	if name != "" {
		w.String("na", truncate(name))
	}
	w.Int("pa", parentID)
	w.Int("s0", b.NextSequence())
	w.Int("t0", b.offset(at))
	return w
}

// offset is at relative to the session start in milliseconds.
func (b *Beacon) offset(at time.Time) int64 {
	return clock.Millis(at) - clock.Millis(b.start)
}

// StartSession records the session start.
func (b *Beacon) StartSession() {
	if !b.capturing(DataCollectionPerformance) {
		return
	}
	w := &protocol.PairWriter{}
	w.Int("et", int64(EventSessionStart))
	w.Int("s0", b.NextSequence())
	w.Int("t0", 0)
	b.append(w.Result())
}

// EndSession records the session end at the given time.
func (b *Beacon) EndSession(at time.Time) {
	if !b.capturing(DataCollectionPerformance) {
		return
	}
	w := &protocol.PairWriter{}
	w.Int("et", int64(EventSessionEnd))
	w.Int("s0", b.NextSequence())
	w.Int("t0", b.offset(at))
	b.append(w.Result())
}

// AddAction records a completed action.
func (b *Beacon) AddAction(action Action) {
	if !b.capturing(DataCollectionPerformance) {
		return
	}
	w := &protocol.PairWriter{}
	w.Int("et", int64(EventAction))
	w.String("na", truncate(action.Name))
	w.Int("ca", action.ID)
	w.Int("pa", action.ParentID)
	w.Int("s0", action.StartSequence)
	w.Int("t0", b.offset(action.Start))
	w.Int("s1", action.EndSequence)
	w.Int("t1", clock.Millis(action.End)-clock.Millis(action.Start))
	b.append(w.Result())
}

// ReportEvent records a named event under the given action.
func (b *Beacon) ReportEvent(parentID int64, name string) {
	if !b.capturing(DataCollectionUserBehavior) {
		return
	}
	b.append(b.eventWriter(EventNamed, name, parentID, b.clock.Now()).Result())
}

// ReportIntValue records an integer value under the given action.
func (b *Beacon) ReportIntValue(parentID int64, name string, value int64) {
	if !b.capturing(DataCollectionUserBehavior) {
		return
	}
	w := b.eventWriter(EventValueInt, name, parentID, b.clock.Now())
	w.Int("vl", value)
	b.append(w.Result())
}

// ReportFloatValue records a floating point value under the given
// action.
func (b *Beacon) ReportFloatValue(parentID int64, name string, value float64) {
	if !b.capturing(DataCollectionUserBehavior) {
		return
	}
	w := b.eventWriter(EventValueFloat, name, parentID, b.clock.Now())
	w.Float("vl", value)
	b.append(w.Result())
}

// ReportStringValue records a string value under the given action.
func (b *Beacon) ReportStringValue(parentID int64, name string, value string) {
	if !b.capturing(DataCollectionUserBehavior) {
		return
	}
	w := b.eventWriter(EventValueString, name, parentID, b.clock.Now())
	w.String("vl", truncate(value))
	b.append(w.Result())
}

// ReportError records an error under the given action. It is dropped
// when the collector has disabled error capture.
func (b *Beacon) ReportError(parentID int64, name string, code int, reason string) {
	if !b.capturing(DataCollectionPerformance) || !b.settings.CaptureErrors() {
		return
	}
	w := b.eventWriter(EventError, name, parentID, b.clock.Now())
	w.Int("ev", int64(code))
	if reason != "" {
		w.String("rs", reason)
	}
	b.append(w.Result())
}

// ReportCrash records a crash. Crashes require the application to opt
// in and the collector to allow crash capture.
func (b *Beacon) ReportCrash(name, reason, stacktrace string) {
	if !b.settings.Capture() || !b.settings.CaptureCrashes() || b.identity.CrashReporting != CrashReportingOptIn {
		return
	}
	w := b.eventWriter(EventCrash, name, 0, b.clock.Now())
	if reason != "" {
		w.String("rs", reason)
	}
	if stacktrace != "" {
		w.String("st", stacktrace)
	}
	b.append(w.Result())
}

// IdentifyUser tags the session with a user identifier.
func (b *Beacon) IdentifyUser(tag string) {
	if !b.capturing(DataCollectionUserBehavior) {
		return
	}
	b.append(b.eventWriter(EventIdentifyUser, tag, 0, b.clock.Now()).Result())
}

func truncate(name string) string {
	if len(name) <= MaxNameLength {
		return name
	}
	// Cut on a rune boundary.
	cut := MaxNameLength
	for cut > 0 && name[cut]&0xC0 == 0x80 {
		cut--
	}
	return name[:cut]
}
