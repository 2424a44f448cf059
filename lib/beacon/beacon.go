// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import (
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/timesync"
)

// ChunkMargin is subtracted from the maximum beacon size to leave room
// for transport framing. It only applies when the maximum exceeds it.
const ChunkMargin = 1024

// MaxNameLength bounds action, event and value names. Longer names are
// truncated.
const MaxNameLength = 250

// Settings is the read side of the collector's runtime settings.
type Settings interface {
	Capture() bool
	CaptureErrors() bool
	CaptureCrashes() bool
	Multiplicity() int
}

// Identity is the static description of the application and device,
// shared by every beacon of a client.
type Identity struct {
	ApplicationID      string
	ApplicationName    string
	ApplicationVersion string
	AgentVersion       string

	// DeviceID is the stable visitor id, used only at
	// DataCollectionUserBehavior.
	DeviceID string

	OperatingSystem string
	Manufacturer    string
	Model           string

	// ClientIP, when set, overrides the address the collector
	// attributes beacons to.
	ClientIP string

	DataCollection DataCollectionLevel
	CrashReporting CrashReportingLevel
}

// Config configures a Beacon. Settings, Clock, ClusterClock and Logger
// are required.
type Config struct {
	Identity      Identity
	SessionNumber int
	Settings      Settings
	Clock         clock.Clock
	ClusterClock  *timesync.ClusterClock
	Logger        *slog.Logger
}

// Beacon holds one session's pending records. Safe for concurrent use.
type Beacon struct {
	identity      Identity
	sessionNumber int
	visitorID     string
	start         time.Time

	settings     Settings
	clock        clock.Clock
	clusterClock *timesync.ClusterClock
	logger       *slog.Logger

	nextActionID atomic.Int64
	nextSequence atomic.Int64

	mu       sync.Mutex
	records  []string
	inFlight []string

	// discarded beacons drop every later record.
	discarded bool
}

// New returns an empty beacon whose session starts now.
func New(config Config) *Beacon {
	if config.Settings == nil || config.Clock == nil || config.ClusterClock == nil {
		panic("beacon.New: Settings, Clock and ClusterClock are required")
	}
	if config.Logger == nil {
		panic("beacon.New: Logger is required")
	}

	beacon := &Beacon{
		identity:      config.Identity,
		sessionNumber: config.SessionNumber,
		start:         config.Clock.Now(),
		settings:      config.Settings,
		clock:         config.Clock,
		clusterClock:  config.ClusterClock,
		logger:        config.Logger,
	}
	if config.Identity.DataCollection == DataCollectionUserBehavior && config.Identity.DeviceID != "" {
		beacon.visitorID = config.Identity.DeviceID
	} else {
		// Anonymous sessions are not linkable to each other.
		beacon.visitorID = strconv.FormatUint(rand.Uint64(), 10)
		beacon.sessionNumber = 1
	}
	return beacon
}

// SessionNumber is the number sent in the header.
func (b *Beacon) SessionNumber() int { return b.sessionNumber }

// StartTime is the local time the session started.
func (b *Beacon) StartTime() time.Time { return b.start }

// NextActionID returns a fresh action id, starting at 1.
func (b *Beacon) NextActionID() int64 { return b.nextActionID.Add(1) }

// NextSequence returns the next event sequence number, starting at 1.
func (b *Beacon) NextSequence() int64 { return b.nextSequence.Add(1) }

// IsEmpty reports whether no records are queued or in flight.
func (b *Beacon) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records) == 0 && len(b.inFlight) == 0
}

// Clear drops all queued and in-flight records.
func (b *Beacon) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
	b.inFlight = nil
}

// Discard clears the beacon and makes every later record a no-op. The
// registry calls it for sessions it drops, which no flush will reach.
func (b *Beacon) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discarded = true
	b.records = nil
	b.inFlight = nil
}

// Len returns the number of queued records, excluding any in flight.
func (b *Beacon) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func (b *Beacon) append(record string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.discarded {
		return
	}
	b.records = append(b.records, record)
}

// header renders the per-chunk session header. The transmission time
// is taken when the chunk is cut.
func (b *Beacon) header() string {
	var w protocol.PairWriter
	w.Int("vv", protocol.ProtocolVersion)
	w.String("va", b.identity.AgentVersion)
	w.String("ap", b.identity.ApplicationID)
	w.String("an", b.identity.ApplicationName)
	w.String("vn", b.identity.ApplicationVersion)
	w.Int("pt", protocol.PlatformType)
	w.String("tt", protocol.AgentTechnology)
	w.String("vi", b.visitorID)
	w.Int("sn", int64(b.sessionNumber))
	if b.identity.ClientIP != "" {
		w.String("ip", b.identity.ClientIP)
	}
	if b.identity.OperatingSystem != "" {
		w.String("os", b.identity.OperatingSystem)
	}
	if b.identity.Manufacturer != "" {
		w.String("mf", b.identity.Manufacturer)
	}
	if b.identity.Model != "" {
		w.String("md", b.identity.Model)
	}
	w.Int("mp", int64(b.settings.Multiplicity()))
	w.Int("tv", b.clusterClock.ClusterMillis(b.start))
	w.Int("tx", b.clusterClock.ClusterMillis(b.clock.Now()))
	return w.Result()
}

// ClientIP is the client address override sent with each chunk, or
// empty.
func (b *Beacon) ClientIP() string { return b.identity.ClientIP }
