package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type chanSender struct {
	delivered chan *AlertPayload
	release   chan struct{} // when non-nil, Send waits for it
	err       error
}

func (s *chanSender) Name() string { return "chan" }

func (s *chanSender) Send(ctx context.Context, p *AlertPayload) error {
	if s.release != nil {
		<-s.release
	}
	s.delivered <- p
	return s.err
}

type memLedger struct {
	mu      sync.Mutex
	last    map[string]time.Time
	records int
	err     error
}

func (l *memLedger) LastAlertAt(ctx context.Context, key string) (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return time.Time{}, false, l.err
	}
	t, ok := l.last[key]
	return t, ok, nil
}

func (l *memLedger) RecordAlert(ctx context.Context, p *AlertPayload) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records++
	l.last[p.Key()] = p.Timestamp
	return nil
}

func waitDelivered(t *testing.T, ch <-chan *AlertPayload) *AlertPayload {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestDispatcherDelivers(t *testing.T) {
	sender := &chanSender{delivered: make(chan *AlertPayload, 1)}
	d := NewDispatcher(sender, 4, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	if !d.Notify(samplePayload()) {
		t.Fatal("Notify rejected alert")
	}
	if got := waitDelivered(t, sender.delivered); got.Title != samplePayload().Title {
		t.Errorf("delivered %q", got.Title)
	}
}

func TestDispatcherNotifyNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	sender := &chanSender{delivered: make(chan *AlertPayload, 10), release: release}
	d := NewDispatcher(sender, 2, quietLogger())

	// Not running: the queue fills and the third alert is dropped
	done := make(chan []bool)
	go func() {
		done <- []bool{d.Notify(samplePayload()), d.Notify(samplePayload()), d.Notify(samplePayload())}
	}()

	select {
	case got := <-done:
		want := []bool{true, true, false}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Notify #%d = %v, want %v", i, got[i], want[i])
			}
		}
	case <-time.After(time.Second):
		t.Fatal("Notify blocked")
	}
	close(release)
}

func TestDispatcherDisabled(t *testing.T) {
	d := NewDispatcher(nil, 1, quietLogger())
	if d.Enabled() {
		t.Error("dispatcher without sender should be disabled")
	}
	if d.Notify(samplePayload()) {
		t.Error("Notify should be a no-op without a sender")
	}
}

func TestDispatcherSendErrorIsSwallowed(t *testing.T) {
	sender := &chanSender{delivered: make(chan *AlertPayload, 2), err: errors.New("down")}
	ledger := &memLedger{last: map[string]time.Time{}}
	d := NewDispatcher(sender, 4, quietLogger()).WithLedger(ledger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify(samplePayload())
	waitDelivered(t, sender.delivered)

	// The next alert is still processed after a failure
	d.Notify(samplePayload())
	waitDelivered(t, sender.delivered)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if ledger.records != 0 {
		t.Errorf("failed sends must not be recorded, got %d", ledger.records)
	}
}

func TestDispatcherCooldown(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := samplePayload()

	tests := []struct {
		name     string
		cooldown time.Duration
		lastSent time.Duration // before now; zero means never
		ledger   error
		want     bool
	}{
		{"no history", time.Hour, 0, nil, false},
		{"inside window", time.Hour, 10 * time.Minute, nil, true},
		{"outside window", time.Hour, 2 * time.Hour, nil, false},
		{"cooldown disabled", 0, 10 * time.Minute, nil, false},
		{"ledger error sends anyway", time.Hour, 10 * time.Minute, errors.New("db down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &memLedger{last: map[string]time.Time{}, err: tt.ledger}
			if tt.lastSent > 0 {
				ledger.last[p.Key()] = now.Add(-tt.lastSent)
			}
			d := NewDispatcher(&chanSender{}, 1, quietLogger()).WithLedger(ledger, tt.cooldown)
			d.now = func() time.Time { return now }

			if got := d.suppressed(context.Background(), p); got != tt.want {
				t.Errorf("suppressed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatcherRecordsDelivered(t *testing.T) {
	sender := &chanSender{delivered: make(chan *AlertPayload, 2)}
	ledger := &memLedger{last: map[string]time.Time{}}
	d := NewDispatcher(sender, 4, quietLogger()).WithLedger(ledger, time.Hour)

	first := samplePayload()
	second := samplePayload()
	d.now = func() time.Time { return first.Timestamp.Add(time.Minute) }

	d.deliver(context.Background(), first)
	waitDelivered(t, sender.delivered)

	// Same key one minute later is suppressed
	d.deliver(context.Background(), second)
	select {
	case <-sender.delivered:
		t.Error("repeat alert inside cooldown was delivered")
	default:
	}

	if ledger.records != 1 {
		t.Errorf("records = %d, want 1", ledger.records)
	}
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	sender := &chanSender{delivered: make(chan *AlertPayload, 3)}
	d := NewDispatcher(sender, 3, quietLogger())

	for i := 0; i < 3; i++ {
		d.Notify(samplePayload())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// Run may pick queued items before noticing cancellation; either way all three arrive
	if got := len(sender.delivered); got != 3 {
		t.Errorf("delivered %d alerts, want 3", got)
	}
}
