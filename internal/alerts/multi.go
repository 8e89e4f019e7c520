package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/liamashdown/edgescan/internal/metrics"
)

// MultiSender sends alerts to multiple destinations
type MultiSender struct {
	senders []Sender
}

// NewMultiSender creates a new multi-sender
func NewMultiSender(senders ...Sender) *MultiSender {
	return &MultiSender{
		senders: senders,
	}
}

// Name joins the names of the wrapped senders
func (s *MultiSender) Name() string {
	names := make([]string, len(s.senders))
	for i, sender := range s.senders {
		names[i] = sender.Name()
	}
	return strings.Join(names, "+")
}

// Send sends the alert to all configured senders. One failing sender does not
// stop delivery to the rest.
func (s *MultiSender) Send(ctx context.Context, payload *AlertPayload) error {
	var errs []string
	for _, sender := range s.senders {
		err := sender.Send(ctx, payload)
		metrics.RecordAlertSent(sender.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", sender.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multi-sender: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}
