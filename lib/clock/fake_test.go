// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func pending(clock *FakeClock) int {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return len(clock.waiters)
}

func TestFakeClockNowAndAdvance(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(90 * time.Second)
	if got := clock.Now(); !got.Equal(epoch.Add(90 * time.Second)) {
		t.Fatalf("Now() after Advance = %v", got)
	}
}

func TestFakeClockAfterFiresAtDeadline(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(5 * time.Second)

	clock.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(1 * time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(5 * time.Second)) {
			t.Fatalf("fired at %v", fired)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if pending(clock) != 0 {
		t.Fatalf("%d waiters pending after firing, want 0", pending(clock))
	}
}

func TestFakeClockAfterNonPositiveIsImmediate(t *testing.T) {
	clock := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(d):
		default:
			t.Fatalf("After(%v) should be ready immediately", d)
		}
	}
	if pending(clock) != 0 {
		t.Fatalf("non-positive After registered %d waiters", pending(clock))
	}
}

func TestFakeClockAfterReleasedByAdvance(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(2 * time.Hour)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(2 * time.Hour)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClockWaitForTimersConcurrent(t *testing.T) {
	clock := Fake(epoch)
	const goroutines = 8

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-clock.After(time.Minute)
		}()
	}

	clock.WaitForTimers(goroutines)
	clock.Advance(time.Minute)
	wg.Wait()
}

func TestMillis(t *testing.T) {
	if ms := Millis(epoch); ms != 1767225600000 {
		t.Fatalf("Millis(epoch) = %d", ms)
	}
}

func TestClockImplementations(t *testing.T) {
	var _ Clock = (*FakeClock)(nil)
	var _ Clock = Real()
}
