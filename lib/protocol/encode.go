// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"net/url"
	"strconv"
	"strings"
)

// Escape percent-encodes a beacon value. Spaces become %20 rather than
// '+' so the collector decodes them identically in every field.
func Escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

// PairWriter builds an &-joined key=value string.
type PairWriter struct {
	builder strings.Builder
}

// String appends key=escaped(value).
func (w *PairWriter) String(key, value string) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(Escape(value))
}

// Int appends key=value for an integer.
func (w *PairWriter) Int(key string, value int64) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(strconv.FormatInt(value, 10))
}

// Float appends key=value for a float, formatted without exponent
// where possible.
func (w *PairWriter) Float(key string, value float64) {
	w.separator()
	w.builder.WriteString(key)
	w.builder.WriteByte('=')
	w.builder.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
}

// Len returns the current length in bytes.
func (w *PairWriter) Len() int { return w.builder.Len() }

// Result returns the built string.
func (w *PairWriter) Result() string { return w.builder.String() }

func (w *PairWriter) separator() {
	if w.builder.Len() > 0 {
		w.builder.WriteByte('&')
	}
}
