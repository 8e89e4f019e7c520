package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender sends alerts to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Name implements Sender
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the alert
func (s *LogSender) Send(ctx context.Context, payload *AlertPayload) error {
	s.log.WithFields(logrus.Fields{
		"severity":      payload.Severity,
		"scan_id":       payload.ScanID,
		"market":        payload.Title,
		"source":        payload.Source,
		"link":          payload.Link,
		"topic":         payload.Topic,
		"current_price": payload.CurrentPrice,
		"fair_value":    payload.FairValue,
		"edge_pct":      payload.EdgePercent(),
		"confidence":    payload.Confidence,
	}).Info("Alert generated")
	return nil
}
