// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// RecordingWriter appends CBOR items to an lz4-compressed stream. Safe
// for concurrent use.
type RecordingWriter struct {
	mu         sync.Mutex
	compressor *lz4.Writer
	encoder    *Encoder
	closed     bool
}

// NewRecordingWriter starts a recording on w. The caller owns w and
// closes it after Close.
func NewRecordingWriter(w io.Writer) *RecordingWriter {
	compressor := lz4.NewWriter(w)
	return &RecordingWriter{
		compressor: compressor,
		encoder:    NewEncoder(compressor),
	}
}

// Append encodes v as the next item and flushes it, so a recording cut
// short by a crash keeps every item appended before it.
func (w *RecordingWriter) Append(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("codec: append to closed recording")
	}
	if err := w.encoder.Encode(v); err != nil {
		return fmt.Errorf("encoding recording item: %w", err)
	}
	if err := w.compressor.Flush(); err != nil {
		return fmt.Errorf("flushing recording: %w", err)
	}
	return nil
}

// Close writes the lz4 frame trailer. It does not close the
// underlying writer.
func (w *RecordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.compressor.Close()
}

// RecordingReader reads items written by a RecordingWriter.
type RecordingReader struct {
	decoder *Decoder
}

// NewRecordingReader reads a recording from r.
func NewRecordingReader(r io.Reader) *RecordingReader {
	return &RecordingReader{decoder: NewDecoder(lz4.NewReader(r))}
}

// Next decodes the next item into v. It returns io.EOF after the last
// item.
func (r *RecordingReader) Next(v any) error {
	return r.decoder.Decode(v)
}
