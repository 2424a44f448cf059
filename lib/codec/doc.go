// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the project's CBOR encoding configuration and
// the recording file format built on it.
//
// The collector wire protocol is plain text and is handled by
// lib/protocol. CBOR is used only for data the project writes for
// itself: the mock collector's recordings of what clients sent.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For recordings, an lz4 frame wrapping a CBOR sequence:
//
//	writer := codec.NewRecordingWriter(file)
//	err = writer.Append(record)
//	err = writer.Close()
//
//	reader := codec.NewRecordingReader(file)
//	for reader.Next(&record) == nil { ... }
//
// Types serialized only here use `cbor` struct tags.
package codec
