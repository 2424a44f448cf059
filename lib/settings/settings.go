// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package settings holds the collector-controlled runtime settings:
// whether to capture at all, how often to send, how large a beacon may
// be, which server id and monitor name to address, and whether errors
// and crashes are captured.
//
// The sender goroutine is the only writer; it applies every status
// response through [Runtime.UpdateFromStatusResponse]. Application
// goroutines read the flags when deciding whether to record an event.
// Every field is stored in an atomic so reads never need a lock.
//
// Turning capture off clears the session registry in the same call:
// data recorded while capture was on is discarded, not sent late.
package settings

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beacon/lib/protocol"
)

// Defaults applied when the collector omits a field.
const (
	DefaultSendInterval  = 2 * time.Minute
	DefaultMaxBeaconSize = 30 * 1024
	DefaultMultiplicity  = 1
)

// SessionClearer drops all queued sessions without sending them.
type SessionClearer interface {
	ClearAll()
}

// EndpointUpdater retargets the transport when the collector assigns a
// new server id or monitor name.
type EndpointUpdater interface {
	UpdateEndpoint(serverID int, monitorName string)
}

// Config configures a Runtime.
type Config struct {
	// ServerID is the server id used before and whenever the
	// collector does not assign one.
	ServerID int

	// Sessions is cleared when capture turns off. Required.
	Sessions SessionClearer

	// Endpoint is notified when the server id or monitor name
	// changes. Optional.
	Endpoint EndpointUpdater

	// Logger is required.
	Logger *slog.Logger
}

// Runtime is the live settings snapshot. Capture starts enabled so
// that events recorded before the first status response are kept.
type Runtime struct {
	capture        atomic.Bool
	captureErrors  atomic.Bool
	captureCrashes atomic.Bool
	sendInterval   atomic.Int64
	maxBeaconSize  atomic.Int64
	serverID       atomic.Int64
	multiplicity   atomic.Int64
	monitorName    atomic.Pointer[string]

	defaultServerID int
	sessions        SessionClearer
	endpoint        EndpointUpdater
	logger          *slog.Logger
}

// New returns a Runtime initialised to the defaults.
func New(config Config) *Runtime {
	if config.Sessions == nil {
		panic("settings.New: Sessions is required")
	}
	if config.Logger == nil {
		panic("settings.New: Logger is required")
	}
	runtime := &Runtime{
		defaultServerID: config.ServerID,
		sessions:        config.Sessions,
		endpoint:        config.Endpoint,
		logger:          config.Logger,
	}
	monitorName := protocol.DefaultMonitorName
	runtime.monitorName.Store(&monitorName)
	runtime.capture.Store(true)
	runtime.captureErrors.Store(true)
	runtime.captureCrashes.Store(true)
	runtime.sendInterval.Store(int64(DefaultSendInterval))
	runtime.maxBeaconSize.Store(DefaultMaxBeaconSize)
	runtime.serverID.Store(int64(config.ServerID))
	runtime.multiplicity.Store(DefaultMultiplicity)
	return runtime
}

// Capture reports whether telemetry should be recorded and sent. A
// multiplicity of zero also suppresses capture.
func (r *Runtime) Capture() bool {
	return r.capture.Load() && r.multiplicity.Load() > 0
}

// CaptureErrors reports whether reported errors are recorded.
func (r *Runtime) CaptureErrors() bool { return r.captureErrors.Load() }

// CaptureCrashes reports whether reported crashes are recorded.
func (r *Runtime) CaptureCrashes() bool { return r.captureCrashes.Load() }

// SendInterval is the minimum time between open-session flushes.
func (r *Runtime) SendInterval() time.Duration { return time.Duration(r.sendInterval.Load()) }

// MaxBeaconSize is the upper bound on one beacon chunk, in bytes.
func (r *Runtime) MaxBeaconSize() int { return int(r.maxBeaconSize.Load()) }

// ServerID is the server id requests are addressed to.
func (r *Runtime) ServerID() int { return int(r.serverID.Load()) }

// MonitorName is the collector path requests are sent to.
func (r *Runtime) MonitorName() string { return *r.monitorName.Load() }

// Multiplicity is the collector's sampling factor.
func (r *Runtime) Multiplicity() int { return int(r.multiplicity.Load()) }

// DisableCapture turns capture off and drops all queued sessions.
func (r *Runtime) DisableCapture() {
	r.capture.Store(false)
	r.sessions.ClearAll()
}

// UpdateFromStatusResponse applies a collector response. A nil
// response or a non-200 status disables capture. A response with
// capture off disables capture and leaves the other settings alone.
// Otherwise every field is adopted, falling back to the defaults for
// fields the collector omitted.
func (r *Runtime) UpdateFromStatusResponse(response *protocol.StatusResponse) {
	if response == nil || response.StatusCode != http.StatusOK {
		statusCode := 0
		if response != nil {
			statusCode = response.StatusCode
		}
		r.logger.Debug("no usable status response, disabling capture", "http_status", statusCode)
		r.DisableCapture()
		return
	}

	r.capture.Store(response.Capture)
	if !response.Capture {
		r.logger.Info("collector disabled capture")
		r.sessions.ClearAll()
		return
	}

	sendInterval := response.SendInterval
	if sendInterval <= 0 {
		sendInterval = DefaultSendInterval
	}
	r.sendInterval.Store(int64(sendInterval))

	maxBeaconSize := response.MaxBeaconSize
	if maxBeaconSize <= 0 {
		maxBeaconSize = DefaultMaxBeaconSize
	}
	r.maxBeaconSize.Store(int64(maxBeaconSize))

	serverID := response.ServerID
	if serverID == protocol.Unset {
		serverID = r.defaultServerID
	}
	monitorName := response.MonitorName
	if monitorName == "" {
		monitorName = protocol.DefaultMonitorName
	}

	previousServerID := r.ServerID()
	previousMonitorName := r.MonitorName()
	r.serverID.Store(int64(serverID))
	r.monitorName.Store(&monitorName)
	if (serverID != previousServerID || monitorName != previousMonitorName) && r.endpoint != nil {
		r.endpoint.UpdateEndpoint(serverID, monitorName)
	}

	r.captureErrors.Store(response.CaptureErrors)
	r.captureCrashes.Store(response.CaptureCrashes)
	r.multiplicity.Store(int64(response.Multiplicity))
	if response.Multiplicity <= 0 {
		r.logger.Info("collector set multiplicity to zero, discarding sessions")
		r.sessions.ClearAll()
	}
}
