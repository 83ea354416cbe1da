package ratelimit

import (
	"testing"
	"time"
)

func TestAllowDrainsAndRefills(t *testing.T) {
	l := New()
	now := time.Unix(1_752_489_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1", 2, 1) || !l.Allow("10.0.0.1", 2, 1) {
		t.Fatal("fresh bucket should grant capacity tokens")
	}
	if l.Allow("10.0.0.1", 2, 1) {
		t.Fatal("empty bucket granted a token")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("10.0.0.1", 2, 1) {
		t.Fatal("refill after 1.5s should grant one token")
	}
	if l.Allow("10.0.0.1", 2, 1) {
		t.Fatal("only half a token should remain")
	}
}

func TestAllowCapsAtCapacity(t *testing.T) {
	l := New()
	now := time.Unix(1_752_489_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("k", 3, 10)
	now = now.Add(time.Hour)

	granted := 0
	for i := 0; i < 10; i++ {
		if l.Allow("k", 3, 10) {
			granted++
		}
	}
	if granted != 3 {
		t.Fatalf("granted %d tokens after long idle, want capacity 3", granted)
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := New()
	now := time.Unix(1_752_489_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a", 1, 1) {
		t.Fatal("first key blocked")
	}
	if !l.Allow("b", 1, 1) {
		t.Fatal("second key should have its own bucket")
	}
	if l.Allow("a", 1, 1) {
		t.Fatal("first key should be drained")
	}
}
