// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package beacon

import "fmt"

// DataCollectionLevel controls how much the application lets the
// client record.
type DataCollectionLevel int

const (
	// DataCollectionOff records nothing.
	DataCollectionOff DataCollectionLevel = iota

	// DataCollectionPerformance records actions, session boundaries
	// and errors, with an anonymous visitor id.
	DataCollectionPerformance

	// DataCollectionUserBehavior additionally records named events,
	// values and user tags, and uses the stable device id.
	DataCollectionUserBehavior
)

func (l DataCollectionLevel) String() string {
	switch l {
	case DataCollectionOff:
		return "off"
	case DataCollectionPerformance:
		return "performance"
	case DataCollectionUserBehavior:
		return "user-behavior"
	default:
		return fmt.Sprintf("DataCollectionLevel(%d)", int(l))
	}
}

// ParseDataCollectionLevel parses the String form of a level.
func ParseDataCollectionLevel(value string) (DataCollectionLevel, error) {
	switch value {
	case "off":
		return DataCollectionOff, nil
	case "performance":
		return DataCollectionPerformance, nil
	case "user-behavior":
		return DataCollectionUserBehavior, nil
	default:
		return 0, fmt.Errorf("unknown data collection level %q (want off, performance, or user-behavior)", value)
	}
}

// CrashReportingLevel controls whether crashes are recorded.
type CrashReportingLevel int

const (
	CrashReportingOff CrashReportingLevel = iota
	CrashReportingOptOut
	CrashReportingOptIn
)

func (l CrashReportingLevel) String() string {
	switch l {
	case CrashReportingOff:
		return "off"
	case CrashReportingOptOut:
		return "opt-out"
	case CrashReportingOptIn:
		return "opt-in"
	default:
		return fmt.Sprintf("CrashReportingLevel(%d)", int(l))
	}
}

// ParseCrashReportingLevel parses the String form of a level.
func ParseCrashReportingLevel(value string) (CrashReportingLevel, error) {
	switch value {
	case "off":
		return CrashReportingOff, nil
	case "opt-out":
		return CrashReportingOptOut, nil
	case "opt-in":
		return CrashReportingOptIn, nil
	default:
		return 0, fmt.Errorf("unknown crash reporting level %q (want off, opt-out, or opt-in)", value)
	}
}
