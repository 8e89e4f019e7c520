package ratelimit

import (
	"testing"
	"time"
)

func newFakeClock(l *Limiter) *time.Time {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	l.last = clock
	return &clock
}

func TestAllowBurstThenRefill(t *testing.T) {
	l := New(2, 3)
	clock := newFakeClock(l)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d within burst rejected", i)
		}
	}
	if l.Allow() {
		t.Fatal("request beyond burst admitted")
	}
	if got := l.RetryAfter(); got != 500*time.Millisecond {
		t.Errorf("RetryAfter = %v, want 500ms", got)
	}

	*clock = clock.Add(500 * time.Millisecond)
	if !l.Allow() {
		t.Error("token should have refilled after 500ms at 2 rps")
	}
	if l.Allow() {
		t.Error("only one token should have refilled")
	}

	*clock = clock.Add(time.Hour)
	admitted := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			admitted++
		}
	}
	if admitted != 3 {
		t.Errorf("refill should cap at burst, admitted %d", admitted)
	}
}

func TestNilLimiterAdmitsEverything(t *testing.T) {
	l := New(0, 5)
	if l != nil {
		t.Fatal("non-positive rate should disable limiting")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("nil limiter rejected a request")
		}
	}
	if l.RetryAfter() != 0 {
		t.Error("nil limiter RetryAfter should be zero")
	}
}
