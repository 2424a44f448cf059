// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sender

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/beacon/lib/beacon"
	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/protocol"
	"github.com/bureau-foundation/beacon/lib/session"
	"github.com/bureau-foundation/beacon/lib/settings"
	"github.com/bureau-foundation/beacon/lib/testutil"
	"github.com/bureau-foundation/beacon/lib/timesync"
)

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// fakeTransport answers from configurable canned responses. Status
// responses are consumed from statusScript first; when it is empty
// status is used. A nil response is a failed round trip.
type fakeTransport struct {
	clock *clock.FakeClock

	mu             sync.Mutex
	statusScript   []*protocol.StatusResponse
	status         *protocol.StatusResponse
	timeSyncOffset *int64
	beaconResponse *protocol.StatusResponse
	statusCalls    int
	timeSyncCalls  int
	beacons        []string

	uploaded chan string
}

func newFakeTransport(fake *clock.FakeClock) *fakeTransport {
	offset := int64(0)
	return &fakeTransport{
		clock:          fake,
		status:         okStatus("cp=1"),
		timeSyncOffset: &offset,
		beaconResponse: okStatus("cp=1"),
		uploaded:       make(chan string, 64),
	}
}

func okStatus(body string) *protocol.StatusResponse {
	response, err := protocol.ParseStatus(body, http.StatusOK)
	if err != nil {
		panic(err)
	}
	return response
}

func (f *fakeTransport) SendStatus(context.Context) *protocol.StatusResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusScript) > 0 {
		response := f.statusScript[0]
		f.statusScript = f.statusScript[1:]
		return response
	}
	return f.status
}

func (f *fakeTransport) SendTimeSync(context.Context) *protocol.TimeSyncResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeSyncCalls++
	if f.timeSyncOffset == nil {
		return nil
	}
	now := f.clock.Now().UnixMilli() + *f.timeSyncOffset
	return &protocol.TimeSyncResponse{StatusCode: http.StatusOK, RequestReceiveTime: now, ResponseSendTime: now}
}

func (f *fakeTransport) SendBeacon(_ context.Context, _ string, payload []byte) *protocol.StatusResponse {
	f.mu.Lock()
	f.beacons = append(f.beacons, string(payload))
	response := f.beaconResponse
	f.mu.Unlock()
	f.uploaded <- string(payload)
	return response
}

func (f *fakeTransport) counts() (status, timeSync, beacons int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.timeSyncCalls, len(f.beacons)
}

func (f *fakeTransport) set(fn func(*fakeTransport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type harness struct {
	t            *testing.T
	clock        *clock.FakeClock
	transport    *fakeTransport
	settings     *settings.Runtime
	sessions     *session.Registry
	clusterClock *timesync.ClusterClock
	sender       *Sender
	logger       *slog.Logger
	nextSession  int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := clock.Fake(epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := session.NewRegistry()
	runtime := settings.New(settings.Config{ServerID: 1, Sessions: registry, Logger: logger})
	transport := newFakeTransport(fake)
	clusterClock := timesync.NewClusterClock()

	h := &harness{
		t:            t,
		clock:        fake,
		transport:    transport,
		settings:     runtime,
		sessions:     registry,
		clusterClock: clusterClock,
		logger:       logger,
		sender: New(Config{
			Transport:    transport,
			Settings:     runtime,
			Sessions:     registry,
			ClusterClock: clusterClock,
			Clock:        fake,
			Logger:       logger,
		}),
	}
	t.Cleanup(func() {
		h.sender.RequestShutdown()
		testutil.RequireClosed(t, h.sender.Done(), 5*time.Second, "sender did not stop")
	})
	return h
}

// newSession registers an open session holding one named event.
func (h *harness) newSession(event string) *session.Session {
	h.nextSession++
	created := session.New(h.nextSession, beacon.New(beacon.Config{
		Identity:      beacon.Identity{ApplicationID: "app", DataCollection: beacon.DataCollectionUserBehavior},
		SessionNumber: h.nextSession,
		Settings:      h.settings,
		Clock:         h.clock,
		ClusterClock:  h.clusterClock,
		Logger:        h.logger,
	}))
	created.Beacon().ReportEvent(0, event)
	h.sessions.AddOpen(created)
	return created
}

// startToCaptureOn starts the sender and waits until capture-on is
// sleeping on its first tick.
func (h *harness) startToCaptureOn() {
	h.t.Helper()
	h.sender.Start()
	if !h.sender.WaitForInit(context.Background()) {
		h.t.Fatal("initialization failed")
	}
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "capture-on" {
		h.t.Fatalf("state = %q, want capture-on", state)
	}
}

func TestInitExhaustionTerminates(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.status = nil })
	h.sender.Start()

	for _, delay := range []time.Duration{1, 2, 4, 8, 16} {
		h.clock.WaitForTimers(1)
		h.clock.Advance(delay * time.Second)
	}

	testutil.RequireClosed(t, h.sender.Done(), 5*time.Second, "sender should terminate")
	if h.sender.WaitForInit(context.Background()) {
		t.Fatal("WaitForInit = true after exhausted retries")
	}
	if state := h.sender.State(); state != "terminal" {
		t.Fatalf("state = %q, want terminal", state)
	}
	if status, timeSync, _ := h.transport.counts(); status != StatusRetries+1 || timeSync != 0 {
		t.Fatalf("status calls = %d, time sync calls = %d", status, timeSync)
	}
}

func TestInitRecoversAfterFailures(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.statusScript = []*protocol.StatusResponse{nil, nil} })
	h.sender.Start()

	h.clock.WaitForTimers(1)
	h.clock.Advance(1 * time.Second)
	h.clock.WaitForTimers(1)
	h.clock.Advance(2 * time.Second)

	if !h.sender.WaitForInit(context.Background()) {
		t.Fatal("WaitForInit = false after a late status response")
	}
}

func TestInitialSyncSetsOffset(t *testing.T) {
	h := newHarness(t)
	offset := int64(750)
	h.transport.set(func(f *fakeTransport) { f.timeSyncOffset = &offset })
	h.startToCaptureOn()

	if h.clusterClock.Offset() != 750 {
		t.Fatalf("offset = %d, want 750", h.clusterClock.Offset())
	}
	if _, timeSync, _ := h.transport.counts(); timeSync != timesync.RequiredSamples {
		t.Fatalf("time sync calls = %d, want %d", timeSync, timesync.RequiredSamples)
	}
	if !h.sender.Initialized() {
		t.Fatal("Initialized = false")
	}
}

func TestTimeSyncUnsupportedFallsBackToCaptureOff(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.timeSyncOffset = nil })
	h.sender.Start()

	for _, delay := range []time.Duration{1, 2, 4, 8} {
		h.clock.WaitForTimers(1)
		h.clock.Advance(delay * time.Second)
	}

	if !h.sender.WaitForInit(context.Background()) {
		t.Fatal("unsupported time sync must not fail initialization")
	}
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "capture-off" {
		t.Fatalf("state = %q, want capture-off", state)
	}
	if h.clusterClock.Supported() {
		t.Fatal("cluster clock still supported")
	}
}

func TestInitialCaptureOffGoesToCaptureOff(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.status = okStatus("cp=0") })
	h.sender.Start()
	if !h.sender.WaitForInit(context.Background()) {
		t.Fatal("initialization failed")
	}
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "capture-off" {
		t.Fatalf("state = %q, want capture-off", state)
	}
}

func TestCaptureOnUploadsFinishedSessions(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()

	finished := h.newSession("checkout")
	finished.End(h.clock.Now())
	h.sessions.MoveToFinished(finished)

	h.clock.Advance(Tick)
	payload := testutil.RequireReceive(t, h.transport.uploaded, 5*time.Second, "waiting for upload")
	if !strings.Contains(payload, "na=checkout") {
		t.Fatalf("payload missing event:\n%s", payload)
	}
	h.clock.WaitForTimers(1)
	if h.sessions.FinishedCount() != 0 {
		t.Fatalf("FinishedCount = %d after upload", h.sessions.FinishedCount())
	}
}

func TestCaptureOnFlushesOpenSessionsPerSendInterval(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()
	open := h.newSession("browsing")

	// The first tick is past the send interval since the zero time.
	h.clock.Advance(Tick)
	testutil.RequireReceive(t, h.transport.uploaded, 5*time.Second, "waiting for open session upload")
	h.clock.WaitForTimers(1)
	if !open.IsEmpty() {
		t.Fatal("open session data not committed")
	}

	// New data waits for the next send interval.
	open.Beacon().ReportEvent(0, "scroll")
	h.clock.Advance(Tick)
	h.clock.WaitForTimers(1)
	if _, _, beacons := h.transport.counts(); beacons != 1 {
		t.Fatalf("uploads = %d before the send interval elapsed, want 1", beacons)
	}

	h.clock.Advance(settings.DefaultSendInterval)
	payload := testutil.RequireReceive(t, h.transport.uploaded, 5*time.Second, "waiting for second upload")
	if !strings.Contains(payload, "na=scroll") {
		t.Fatalf("payload missing event:\n%s", payload)
	}
}

func TestCaptureOffFromBeaconResponseAndBack(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()
	h.transport.set(func(f *fakeTransport) { f.beaconResponse = okStatus("cp=0") })

	finished := h.newSession("first")
	h.newSession("still open")
	h.sessions.MoveToFinished(finished)

	h.clock.Advance(Tick)
	testutil.RequireReceive(t, h.transport.uploaded, 5*time.Second, "waiting for upload")
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "capture-off" {
		t.Fatalf("state = %q, want capture-off", state)
	}
	if h.sessions.OpenCount() != 0 || h.sessions.FinishedCount() != 0 {
		t.Fatal("capture off did not clear the registry")
	}

	// The next status poll turns capture back on and forces a time
	// sync, since the last one is now more than two hours old.
	statusBefore, timeSyncBefore, _ := h.transport.counts()
	h.clock.Advance(StatusCheckInterval)
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "capture-on" {
		t.Fatalf("state = %q, want capture-on", state)
	}
	status, timeSync, _ := h.transport.counts()
	if status != statusBefore+1 || timeSync != timeSyncBefore+timesync.RequiredSamples {
		t.Fatalf("status %d→%d, time sync %d→%d", statusBefore, status, timeSyncBefore, timeSync)
	}
}

func TestPeriodicTimeSync(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()

	offset := int64(-300)
	h.transport.set(func(f *fakeTransport) { f.timeSyncOffset = &offset })
	h.clock.Advance(TimeSyncInterval)
	h.clock.WaitForTimers(1)

	if _, timeSync, _ := h.transport.counts(); timeSync != 2*timesync.RequiredSamples {
		t.Fatalf("time sync calls = %d, want %d", timeSync, 2*timesync.RequiredSamples)
	}
	if h.clusterClock.Offset() != -300 {
		t.Fatalf("offset = %d, want -300", h.clusterClock.Offset())
	}
}

func TestShutdownFromCaptureOnFlushesSessions(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()

	finished := h.newSession("done")
	h.sessions.MoveToFinished(finished)
	open := h.newSession("in progress")

	if !h.sender.Shutdown() {
		t.Fatal("Shutdown timed out")
	}
	if state := h.sender.State(); state != "terminal" {
		t.Fatalf("state = %q, want terminal", state)
	}
	if h.sessions.OpenCount() != 0 || h.sessions.FinishedCount() != 0 {
		t.Fatalf("open=%d finished=%d after shutdown", h.sessions.OpenCount(), h.sessions.FinishedCount())
	}
	if open.End(h.clock.Now()) {
		t.Fatal("open session was not ended")
	}

	_, _, beacons := h.transport.counts()
	if beacons != 2 {
		t.Fatalf("uploads = %d, want 2", beacons)
	}
	h.transport.mu.Lock()
	all := strings.Join(h.transport.beacons, "\n")
	h.transport.mu.Unlock()
	for _, want := range []string{"na=done", "na=in%20progress", "et=19"} {
		if !strings.Contains(all, want) {
			t.Errorf("uploads missing %q", want)
		}
	}
}

func TestShutdownDiscardsUnsentSessions(t *testing.T) {
	h := newHarness(t)
	h.startToCaptureOn()
	h.transport.set(func(f *fakeTransport) { f.beaconResponse = nil })
	h.newSession("lost")

	if !h.sender.Shutdown() {
		t.Fatal("Shutdown timed out")
	}
	if h.sessions.FinishedCount() != 0 {
		t.Fatal("failed session left in the registry")
	}
	if _, _, beacons := h.transport.counts(); beacons != 1 {
		t.Fatalf("uploads = %d, want exactly one attempt", beacons)
	}
}

func TestShutdownDuringInitReleasesWaiters(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.status = nil })
	h.sender.Start()
	h.clock.WaitForTimers(1)

	waitResult := make(chan bool, 1)
	go func() { waitResult <- h.sender.WaitForInit(context.Background()) }()

	h.sender.RequestShutdown()
	testutil.RequireClosed(t, h.sender.Done(), 5*time.Second, "sender should stop during init")
	if testutil.RequireReceive(t, waitResult, 5*time.Second, "waiting for WaitForInit") {
		t.Fatal("WaitForInit = true after shutdown during init")
	}
	if state := h.sender.State(); state != "terminal" {
		t.Fatalf("state = %q, want terminal", state)
	}
}

func TestShutdownDuringInitialTimeSyncReleasesWaitersWithFailure(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.timeSyncOffset = nil })
	h.sender.Start()

	// Status succeeded; the first failed time sync is backing off.
	h.clock.WaitForTimers(1)
	if state := h.sender.State(); state != "time-sync" {
		t.Fatalf("state = %q, want time-sync", state)
	}

	h.sender.RequestShutdown()
	testutil.RequireClosed(t, h.sender.Done(), 5*time.Second, "sender should stop during time sync")
	if h.sender.WaitForInit(context.Background()) {
		t.Fatal("WaitForInit = true after shutdown during the initial time sync")
	}
	if !h.clusterClock.Supported() {
		t.Fatal("interrupted time sync marked the cluster clock unsupported")
	}
	if state := h.sender.State(); state != "terminal" {
		t.Fatalf("state = %q, want terminal", state)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	h := newHarness(t)
	if !h.sender.Shutdown() {
		t.Fatal("Shutdown of an unstarted sender timed out")
	}
	if h.sender.WaitForInit(context.Background()) {
		t.Fatal("WaitForInit = true for a sender that never ran")
	}
	h.sender.Start()
	if _, _, beacons := h.transport.counts(); beacons != 0 {
		t.Fatal("sender ran after shutdown")
	}
}

func TestWaitForInitTimeout(t *testing.T) {
	h := newHarness(t)
	h.transport.set(func(f *fakeTransport) { f.status = nil })
	h.sender.Start()

	result := make(chan bool, 1)
	go func() { result <- h.sender.WaitForInitTimeout(500 * time.Millisecond) }()

	// One backoff timer from init plus the waiter's timeout.
	h.clock.WaitForTimers(2)
	h.clock.Advance(500 * time.Millisecond)
	if testutil.RequireReceive(t, result, 5*time.Second, "waiting for timeout") {
		t.Fatal("WaitForInitTimeout = true before init finished")
	}
}

func TestStateShutdownTransitions(t *testing.T) {
	tests := []struct {
		state state
		want  string
	}{
		{initState{}, "terminal"},
		{timeSyncState{initial: true}, "terminal"},
		{timeSyncState{}, "flush-sessions"},
		{captureOnState{}, "flush-sessions"},
		{captureOffState{}, "flush-sessions"},
		{flushSessionsState{}, "terminal"},
		{terminalState{}, "terminal"},
	}
	for _, test := range tests {
		if got := test.state.shutdownState().String(); got != test.want {
			t.Errorf("%s shutdown state = %s, want %s", test.state, got, test.want)
		}
	}
}
