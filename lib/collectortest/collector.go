// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collectortest provides an in-memory collector that speaks
// the beacon wire protocol. Tests mount [Collector.Handler] on an
// httptest.Server; cmd/beacon-collector-mock serves it on a real
// listener for manual testing.
//
// The collector answers status requests and beacon uploads with a
// configurable status body, answers time sync requests from its own
// clock (optionally skewed), and records every request so tests can
// assert on what the client sent.
package collectortest

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"

	"github.com/bureau-foundation/beacon/lib/protocol"
)

// Record kinds.
const (
	KindStatus   = "status"
	KindTimeSync = "timesync"
	KindBeacon   = "beacon"
)

// Record is one request received by the collector.
type Record struct {
	Kind string `cbor:"kind"`

	// ReceivedAt is the collector clock in Unix milliseconds.
	ReceivedAt int64 `cbor:"received_at"`

	Monitor  string `cbor:"monitor"`
	ServerID string `cbor:"server_id,omitempty"`
	ClientIP string `cbor:"client_ip,omitempty"`

	// Payload is the decompressed beacon text. Empty for status and
	// time sync requests.
	Payload string `cbor:"payload,omitempty"`
}

// Collector is a fake collector. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	statusCode int
	statusBody string

	timeSyncEnabled bool
	clockSkew       time.Duration
	now             func() time.Time

	// failRemaining requests are answered with 503 and an HTML body.
	failRemaining int

	records  []Record
	onRecord func(Record)
	router   *mux.Router
}

// New returns a collector that enables capture with default settings
// and supports time sync with zero skew.
func New() *Collector {
	collector := &Collector{
		statusCode:      http.StatusOK,
		statusBody:      "type=m&cp=1",
		timeSyncEnabled: true,
		now:             time.Now,
	}

	router := mux.NewRouter()
	router.HandleFunc("/{monitor}", collector.handleTimeSync).
		Methods(http.MethodGet).
		Queries("type", protocol.TypeTimeSync)
	router.HandleFunc("/{monitor}", collector.handleStatus).
		Methods(http.MethodGet).
		Queries("type", protocol.TypeStatus)
	router.HandleFunc("/{monitor}", collector.handleBeacon).
		Methods(http.MethodPost).
		Queries("type", protocol.TypeStatus)
	collector.router = router

	return collector
}

// Handler returns the collector's HTTP handler.
func (c *Collector) Handler() http.Handler {
	return c.router
}

// SetStatus sets the HTTP status and body returned for status requests
// and beacon uploads. The body should start with "type=m".
func (c *Collector) SetStatus(statusCode int, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCode = statusCode
	c.statusBody = body
}

// SetTimeSync enables or disables time sync support. When disabled,
// time sync requests get a 404 with an empty body. skew is added to
// the collector clock in t1/t2.
func (c *Collector) SetTimeSync(enabled bool, skew time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeSyncEnabled = enabled
	c.clockSkew = skew
}

// FailNext makes the next n requests fail with 503.
func (c *Collector) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failRemaining = n
}

// OnRecord registers fn to be called with every record after it is
// stored. fn runs on the request goroutine and must not call back into
// the collector's setters.
func (c *Collector) OnRecord(fn func(Record)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRecord = fn
}

// Records returns a copy of every request received so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Beacons returns the recorded beacon uploads.
func (c *Collector) Beacons() []Record {
	return c.recordsOfKind(KindBeacon)
}

// Count returns the number of recorded requests of kind.
func (c *Collector) Count(kind string) int {
	return len(c.recordsOfKind(kind))
}

func (c *Collector) recordsOfKind(kind string) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []Record
	for _, record := range c.records {
		if record.Kind == kind {
			matched = append(matched, record)
		}
	}
	return matched
}

func (c *Collector) collectorMillis() int64 {
	return c.now().Add(c.clockSkew).UnixMilli()
}

// record appends a record and reports whether the request should be
// failed.
func (c *Collector) record(request *http.Request, kind, payload string) bool {
	c.mu.Lock()
	entry := Record{
		Kind:       kind,
		ReceivedAt: c.collectorMillis(),
		Monitor:    mux.Vars(request)["monitor"],
		ServerID:   request.URL.Query().Get("srvid"),
		ClientIP:   request.Header.Get(protocol.HeaderClientIP),
		Payload:    payload,
	}
	c.records = append(c.records, entry)
	fail := c.failRemaining > 0
	if fail {
		c.failRemaining--
	}
	hook := c.onRecord
	c.mu.Unlock()

	if hook != nil {
		hook(entry)
	}
	return fail
}

func (c *Collector) handleStatus(writer http.ResponseWriter, request *http.Request) {
	if c.record(request, KindStatus, "") {
		writeFailure(writer)
		return
	}
	c.writeStatus(writer)
}

func (c *Collector) handleBeacon(writer http.ResponseWriter, request *http.Request) {
	payload, err := readPayload(request)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	if c.record(request, KindBeacon, payload) {
		writeFailure(writer)
		return
	}
	c.writeStatus(writer)
}

func (c *Collector) handleTimeSync(writer http.ResponseWriter, request *http.Request) {
	received := func() int64 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.collectorMillis()
	}()
	if c.record(request, KindTimeSync, "") {
		writeFailure(writer)
		return
	}

	c.mu.Lock()
	enabled := c.timeSyncEnabled
	sent := c.collectorMillis()
	c.mu.Unlock()

	if !enabled {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	fmt.Fprintf(writer, "type=%s&t1=%d&t2=%d", protocol.TypeTimeSync, received, sent)
}

func (c *Collector) writeStatus(writer http.ResponseWriter) {
	c.mu.Lock()
	statusCode, body := c.statusCode, c.statusBody
	c.mu.Unlock()

	writer.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	writer.WriteHeader(statusCode)
	io.WriteString(writer, body)
}

func writeFailure(writer http.ResponseWriter) {
	writer.Header().Set("Content-Type", "text/html")
	writer.WriteHeader(http.StatusServiceUnavailable)
	io.WriteString(writer, "<html><body>503 Service Unavailable</body></html>")
}

// readPayload returns the request body, gunzipping it when the client
// declared gzip content encoding.
func readPayload(request *http.Request) (string, error) {
	var reader io.Reader = request.Body
	if strings.EqualFold(request.Header.Get(protocol.HeaderContentEncoding), "gzip") {
		gzipReader, err := gzip.NewReader(request.Body)
		if err != nil {
			return "", fmt.Errorf("opening gzip payload: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading payload: %w", err)
	}
	return string(data), nil
}
