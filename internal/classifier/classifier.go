// Package classifier validates oracle records, computes edge and decides which
// candidates trigger an alert.
package classifier

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/edgescan/internal/alerts"
	"github.com/liamashdown/edgescan/internal/extract"
	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultAlertConfidence is the confidence an alert must strictly exceed
const DefaultAlertConfidence = 80

// Notifier accepts alerts without blocking the caller
type Notifier interface {
	Notify(payload *alerts.AlertPayload) bool
}

// Classifier turns extracted records into scored candidates
type Classifier struct {
	alertConfidence int
	environment     string
	notifier        Notifier
	log             *logrus.Logger
	now             func() time.Time
}

// New creates a classifier. notifier may be nil to disable alerting.
func New(alertConfidence int, environment string, notifier Notifier, log *logrus.Logger) *Classifier {
	return &Classifier{
		alertConfidence: alertConfidence,
		environment:     environment,
		notifier:        notifier,
		log:             log,
		now:             time.Now,
	}
}

// Classify validates records in order, dropping any that lack a fair value,
// confidence or current price or whose fair value lies outside [0,1], and raises an alert for each survivor with
// confidence above the threshold and a positive edge.
func (c *Classifier) Classify(ctx context.Context, scanID string, records []extract.Record) []market.ScoredCandidate {
	candidates := make([]market.ScoredCandidate, 0, len(records))

	for i, rec := range records {
		cand, edge, reason := c.toCandidate(rec)
		if reason != "" {
			metrics.Candidates.WithLabelValues(reason).Inc()
			c.log.WithFields(logrus.Fields{
				"scan_id": scanID,
				"index":   i,
				"title":   stringField(rec, "title"),
				"reason":  reason,
			}).Debug("Dropping candidate")
			continue
		}
		metrics.Candidates.WithLabelValues("valid").Inc()
		candidates = append(candidates, cand)

		if c.shouldAlert(cand.Confidence, edge) {
			c.alert(scanID, cand)
		}
	}

	return candidates
}

func (c *Classifier) shouldAlert(confidence int, edge decimal.Decimal) bool {
	return confidence > c.alertConfidence && edge.IsPositive()
}

func (c *Classifier) alert(scanID string, cand market.ScoredCandidate) {
	metrics.AlertsTriggered.Inc()
	c.log.WithFields(logrus.Fields{
		"scan_id":    scanID,
		"market":     cand.Title,
		"edge":       cand.Edge,
		"confidence": cand.Confidence,
	}).Info("Opportunity exceeds alert threshold")

	if c.notifier == nil {
		return
	}
	c.notifier.Notify(&alerts.AlertPayload{
		Severity:     alerts.SeverityFor(cand.Confidence),
		Title:        cand.Title,
		Source:       string(cand.Source),
		Link:         cand.Link,
		Topic:        string(cand.Topic),
		Rationale:    cand.Rationale,
		CurrentPrice: cand.CurrentPrice,
		FairValue:    cand.FairValue,
		Edge:         cand.Edge,
		Confidence:   cand.Confidence,
		ScanID:       scanID,
		Timestamp:    c.now().UTC(),
		Environment:  c.environment,
	})
}

// Drop reasons, also used as the candidates_total status label
const (
	dropIncomplete = "incomplete"
	dropOutOfRange = "out_of_range"
)

// toCandidate returns a non-empty drop reason when rec cannot be scored. A fair
// value outside [0,1] is usually a percent-scale answer and is dropped, not clamped.
func (c *Classifier) toCandidate(rec extract.Record) (market.ScoredCandidate, decimal.Decimal, string) {
	fair, ok := numberField(rec, "fair_value")
	if !ok {
		return market.ScoredCandidate{}, decimal.Zero, dropIncomplete
	}
	conf, ok := numberField(rec, "confidence")
	if !ok {
		return market.ScoredCandidate{}, decimal.Zero, dropIncomplete
	}
	price, ok := numberField(rec, "current_price")
	if !ok {
		return market.ScoredCandidate{}, decimal.Zero, dropIncomplete
	}
	if fair < 0 || fair > 1 {
		return market.ScoredCandidate{}, decimal.Zero, dropOutOfRange
	}

	price = market.ClampProbability(price)
	edge := decimal.NewFromFloat(fair).Sub(decimal.NewFromFloat(price))

	return market.ScoredCandidate{
		Title:        stringField(rec, "title"),
		Source:       market.Source(strings.ToLower(stringField(rec, "source"))),
		Link:         stringField(rec, "link"),
		CurrentPrice: price,
		FairValue:    fair,
		Edge:         edge.InexactFloat64(),
		Confidence:   clampConfidence(conf),
		Topic:        market.ParseTopic(stringField(rec, "topic")),
		Rationale:    stringField(rec, "rationale"),
	}, edge, ""
}

func clampConfidence(v float64) int {
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

// numberField accepts JSON numbers and numeric strings. Anything else,
// including NaN and infinities, counts as absent.
func numberField(rec extract.Record, key string) (float64, bool) {
	var f float64
	switch v := rec[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringField(rec extract.Record, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}
