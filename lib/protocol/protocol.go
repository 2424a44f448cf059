// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Request type values carried in the type query parameter and echoed
// as the first token of the response body.
const (
	TypeStatus   = "m"
	TypeTimeSync = "mts"
)

// Protocol constants stamped on every request and beacon header.
const (
	ProtocolVersion = 3
	PlatformType    = 1
	AgentTechnology = "go"
)

// DefaultMonitorName is the collector path used until a status
// response names a different one.
const DefaultMonitorName = "mbeacon"

// Header names used on beacon uploads.
const (
	HeaderClientIP        = "X-Client-IP"
	HeaderContentEncoding = "Content-Encoding"
)

// Endpoint identifies where requests are sent. BaseURL is the collector
// root; the monitor name is appended as the last path segment.
type Endpoint struct {
	BaseURL       string
	ApplicationID string
	ServerID      int
	MonitorName   string
	AgentVersion  string
}

// StatusURL returns the URL for status requests and beacon uploads.
func (e Endpoint) StatusURL() string {
	query := url.Values{}
	query.Set("type", TypeStatus)
	query.Set("srvid", strconv.Itoa(e.ServerID))
	query.Set("app", e.ApplicationID)
	query.Set("va", e.AgentVersion)
	query.Set("pt", strconv.Itoa(PlatformType))
	query.Set("tt", AgentTechnology)
	return e.monitorPath() + "?" + query.Encode()
}

// TimeSyncURL returns the URL for time synchronization requests.
func (e Endpoint) TimeSyncURL() string {
	query := url.Values{}
	query.Set("type", TypeTimeSync)
	query.Set("app", e.ApplicationID)
	return e.monitorPath() + "?" + query.Encode()
}

func (e Endpoint) monitorPath() string {
	name := e.MonitorName
	if name == "" {
		name = DefaultMonitorName
	}
	return strings.TrimRight(e.BaseURL, "/") + "/" + url.PathEscape(name)
}

// Kind reports which response kind a body carries by inspecting its
// first token. It returns "" for bodies that are not collector
// responses.
func Kind(body string) string {
	first, _, _ := strings.Cut(body, "&")
	switch strings.TrimSpace(first) {
	case "type=" + TypeTimeSync:
		return TypeTimeSync
	case "type=" + TypeStatus:
		return TypeStatus
	default:
		return ""
	}
}

// Decode parses a response body whose expected kind is want. It
// returns an error when the body's signature does not match or a value
// is malformed.
func Decode(body string, statusCode int, want string) (any, error) {
	got := Kind(body)
	if got != want {
		return nil, fmt.Errorf("response signature %q does not match expected %q", got, want)
	}
	switch want {
	case TypeStatus:
		return ParseStatus(body, statusCode)
	case TypeTimeSync:
		return ParseTimeSync(body, statusCode)
	default:
		return nil, fmt.Errorf("unknown response kind %q", want)
	}
}

// forEachPair walks the &-delimited key=value tokens of body. Tokens
// without '=' are skipped.
func forEachPair(body string, fn func(key, value string) error) error {
	for _, token := range strings.Split(strings.TrimSpace(body), "&") {
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

func parseInt(key, value string) (int64, error) {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", key, value, err)
	}
	return parsed, nil
}
