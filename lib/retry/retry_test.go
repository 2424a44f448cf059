// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/beacon/lib/clock"
	"github.com/bureau-foundation/beacon/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBackOffDoublesWithoutJitter(t *testing.T) {
	schedule := NewBackOff(clock.Fake(epoch), time.Second)
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, expected := range want {
		if got := schedule.NextBackOff(); got != expected {
			t.Fatalf("step %d: NextBackOff() = %v, want %v", i, got, expected)
		}
	}

	schedule.Reset()
	if got := schedule.NextBackOff(); got != time.Second {
		t.Fatalf("after Reset: NextBackOff() = %v, want 1s", got)
	}
}

func TestBackOffCapsAtMaxDelay(t *testing.T) {
	schedule := NewBackOff(clock.Fake(epoch), time.Hour)
	schedule.NextBackOff()
	schedule.NextBackOff()
	if got := schedule.NextBackOff(); got != MaxDelay {
		t.Fatalf("NextBackOff() = %v, want cap %v", got, MaxDelay)
	}
}

func TestWaitElapses(t *testing.T) {
	fake := clock.Fake(epoch)
	result := make(chan bool, 1)
	go func() { result <- Wait(context.Background(), fake, time.Minute) }()

	fake.WaitForTimers(1)
	fake.Advance(time.Minute)
	if !testutil.RequireReceive(t, result, 5*time.Second, "waiting for Wait") {
		t.Fatal("Wait reported interruption after the full duration")
	}
}

func TestWaitInterruptedByCancel(t *testing.T) {
	fake := clock.Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() { result <- Wait(ctx, fake, time.Hour) }()

	fake.WaitForTimers(1)
	cancel()
	if testutil.RequireReceive(t, result, 5*time.Second, "waiting for Wait") {
		t.Fatal("Wait reported a full sleep after cancellation")
	}
}

func TestWaitAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if Wait(ctx, clock.Fake(epoch), time.Hour) {
		t.Fatal("Wait on a cancelled context should return false immediately")
	}
}
