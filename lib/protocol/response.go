// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"net/url"
	"time"
)

// Response keys.
const (
	keyType          = "type"
	keyCapture       = "cp"
	keySendInterval  = "si"
	keyMonitorName   = "bn"
	keyServerID      = "id"
	keyBeaconSize    = "bl"
	keyCaptureErrors = "er"
	keyCaptureCrash  = "cr"
	keyMultiplicity  = "mp"
	keyRequestRecv   = "t1"
	keyResponseSend  = "t2"
)

// Unset is the sentinel for numeric response fields the collector did
// not send. Consumers fall back to their own defaults.
const Unset = -1

// StatusResponse is the collector's answer to a status request or a
// beacon upload.
type StatusResponse struct {
	// StatusCode is the HTTP status of the response. Only 200 responses
	// may change settings.
	StatusCode int

	Capture bool

	// SendInterval is Unset when the collector omitted si.
	SendInterval time.Duration

	// MonitorName is empty when the collector omitted bn.
	MonitorName string

	// ServerID is Unset when the collector omitted id.
	ServerID int

	// MaxBeaconSize is in bytes; Unset when the collector omitted bl.
	MaxBeaconSize int

	CaptureErrors  bool
	CaptureCrashes bool
	Multiplicity   int
}

// ParseStatus parses a status response body. The type token, if
// present, is ignored; callers that need the signature checked use
// Decode.
func ParseStatus(body string, statusCode int) (*StatusResponse, error) {
	response := &StatusResponse{
		StatusCode:     statusCode,
		Capture:        true,
		SendInterval:   Unset,
		ServerID:       Unset,
		MaxBeaconSize:  Unset,
		CaptureErrors:  true,
		CaptureCrashes: true,
		Multiplicity:   1,
	}

	err := forEachPair(body, func(key, value string) error {
		switch key {
		case keyMonitorName:
			name, err := url.QueryUnescape(value)
			if err != nil {
				name = value
			}
			response.MonitorName = name
			return nil
		case keyType:
			return nil
		case keyCapture, keySendInterval, keyServerID, keyBeaconSize,
			keyCaptureErrors, keyCaptureCrash, keyMultiplicity:
		default:
			return nil
		}

		number, err := parseInt(key, value)
		if err != nil {
			return err
		}
		switch key {
		case keyCapture:
			response.Capture = number == 1
		case keySendInterval:
			response.SendInterval = time.Duration(number) * time.Second
		case keyServerID:
			response.ServerID = int(number)
		case keyBeaconSize:
			response.MaxBeaconSize = int(number) * 1024
		case keyCaptureErrors:
			response.CaptureErrors = number != 0
		case keyCaptureCrash:
			response.CaptureCrashes = number != 0
		case keyMultiplicity:
			response.Multiplicity = int(number)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// TimeSyncResponse carries the collector's two timestamps for one
// round trip, in Unix milliseconds of the collector's clock.
type TimeSyncResponse struct {
	StatusCode int

	// RequestReceiveTime is t1: when the collector received the
	// request. Unset when missing.
	RequestReceiveTime int64

	// ResponseSendTime is t2: when the collector sent the response.
	// Unset when missing.
	ResponseSendTime int64
}

// Valid reports whether both timestamps are present.
func (r *TimeSyncResponse) Valid() bool {
	return r != nil && r.RequestReceiveTime != Unset && r.ResponseSendTime != Unset
}

// ParseTimeSync parses a time synchronization response body.
func ParseTimeSync(body string, statusCode int) (*TimeSyncResponse, error) {
	response := &TimeSyncResponse{
		StatusCode:         statusCode,
		RequestReceiveTime: Unset,
		ResponseSendTime:   Unset,
	}
	err := forEachPair(body, func(key, value string) error {
		switch key {
		case keyRequestRecv:
			number, err := parseInt(key, value)
			if err != nil {
				return err
			}
			response.RequestReceiveTime = number
		case keyResponseSend:
			number, err := parseInt(key, value)
			if err != nil {
				return err
			}
			response.ResponseSendTime = number
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}
