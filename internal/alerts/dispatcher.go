package alerts

import (
	"context"
	"time"

	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultQueueSize is used when a non-positive queue size is given
	DefaultQueueSize = 64

	sendTimeout  = 30 * time.Second
	drainTimeout = 10 * time.Second
)

// Ledger remembers delivered alerts so repeats can be suppressed
type Ledger interface {
	LastAlertAt(ctx context.Context, key string) (time.Time, bool, error)
	RecordAlert(ctx context.Context, payload *AlertPayload) error
}

// Dispatcher decouples alert delivery from the scan. Notify enqueues without
// blocking and Run delivers from the queue in the background.
type Dispatcher struct {
	sender   Sender
	queue    chan *AlertPayload
	ledger   Ledger
	cooldown time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. A nil sender makes Notify a no-op.
func NewDispatcher(sender Sender, queueSize int, log *logrus.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan *AlertPayload, queueSize),
		log:    log,
		now:    time.Now,
	}
}

// WithLedger enables recording of delivered alerts. A positive cooldown also
// suppresses repeats of the same key inside the window.
func (d *Dispatcher) WithLedger(ledger Ledger, cooldown time.Duration) *Dispatcher {
	d.ledger = ledger
	d.cooldown = cooldown
	return d
}

// Enabled reports whether any sender is configured
func (d *Dispatcher) Enabled() bool {
	return d.sender != nil
}

// Notify queues the alert and reports whether it was accepted. It never
// blocks: when the queue is full the alert is dropped.
func (d *Dispatcher) Notify(payload *AlertPayload) bool {
	if d.sender == nil {
		return false
	}

	select {
	case d.queue <- payload:
		return true
	default:
		metrics.AlertsDropped.Inc()
		d.log.WithFields(logrus.Fields{
			"scan_id": payload.ScanID,
			"market":  payload.Title,
		}).Warn("Alert queue full, dropping alert")
		return false
	}
}

// Run delivers queued alerts until ctx is cancelled, then drains whatever is
// left within a bounded deadline.
func (d *Dispatcher) Run(ctx context.Context) {
	// A send already in flight is bounded by sendTimeout, not by shutdown
	sendBase := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case payload := <-d.queue:
			d.deliver(sendBase, payload)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if n := len(d.queue); n > 0 {
				d.log.WithField("pending", n).Warn("Alert drain deadline reached")
			}
			return
		case payload := <-d.queue:
			d.deliver(ctx, payload)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, payload *AlertPayload) {
	entry := d.log.WithFields(logrus.Fields{
		"scan_id": payload.ScanID,
		"market":  payload.Title,
		"sender":  d.sender.Name(),
	})

	if d.suppressed(ctx, payload) {
		metrics.AlertsSuppressed.Inc()
		entry.Debug("Alert suppressed by cooldown")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, payload); err != nil {
		entry.WithError(err).Error("Failed to send alert")
		return
	}

	if d.ledger != nil {
		if err := d.ledger.RecordAlert(ctx, payload); err != nil {
			entry.WithError(err).Warn("Failed to record alert")
		}
	}

	entry.Debug("Alert delivered")
}

func (d *Dispatcher) suppressed(ctx context.Context, payload *AlertPayload) bool {
	if d.ledger == nil || d.cooldown <= 0 {
		return false
	}

	last, found, err := d.ledger.LastAlertAt(ctx, payload.Key())
	if err != nil {
		d.log.WithError(err).Warn("Alert ledger lookup failed, sending anyway")
		return false
	}
	return found && d.now().Sub(last) < d.cooldown
}
