// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// upload mirrors the shape of a recorded beacon upload.
type upload struct {
	Kind       string `cbor:"kind"`
	ReceivedAt int64  `cbor:"received_at"`
	ClientIP   string `cbor:"client_ip,omitempty"`
	Payload    string `cbor:"payload,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	original := upload{Kind: "beacon", ReceivedAt: 1767225600000, ClientIP: "192.0.2.1", Payload: "vv=3&et=1"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded upload
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(map[string]any{"b": 2, "a": 1, "kind": "status"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(map[string]any{"kind": "status", "a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	with, err := Marshal(upload{Kind: "status", ClientIP: "192.0.2.1"})
	if err != nil {
		t.Fatal(err)
	}
	without, err := Marshal(upload{Kind: "status"})
	if err != nil {
		t.Fatal(err)
	}
	if len(without) >= len(with) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes", len(without), len(with))
	}
}

func TestUnmarshalIntoAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(upload{Kind: "timesync"})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if fields["kind"] != "timesync" {
		t.Errorf("kind = %v", fields["kind"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded upload
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &decoded); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func BenchmarkMarshal(b *testing.B) {
	record := upload{Kind: "beacon", ReceivedAt: 1767225600000, Payload: strings.Repeat("et=10&na=x&", 50)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Marshal(record)
	}
}
