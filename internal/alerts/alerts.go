package alerts

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Severity represents alert severity
type Severity string

const (
	SeverityWarn  Severity = "WARN"
	SeverityAlert Severity = "ALERT"
)

// highConvictionConfidence marks the point where an alert is escalated
const highConvictionConfidence = 90

// SeverityFor maps oracle confidence onto a severity
func SeverityFor(confidence int) Severity {
	if confidence >= highConvictionConfidence {
		return SeverityAlert
	}
	return SeverityWarn
}

// AlertPayload contains all information for an opportunity alert
type AlertPayload struct {
	Severity     Severity
	Title        string
	Source       string
	Link         string
	Topic        string
	Rationale    string
	CurrentPrice float64
	FairValue    float64
	Edge         float64 // fair value minus current price
	Confidence   int
	ScanID       string
	Timestamp    time.Time
	Environment  string
}

// EdgePercent returns the edge in percentage points
func (p *AlertPayload) EdgePercent() float64 {
	return p.Edge * 100
}

// Key identifies the opportunity for cooldown purposes
func (p *AlertPayload) Key() string {
	return strings.ToLower(p.Source) + "|" + strings.ToLower(strings.TrimSpace(p.Title))
}

// Sender defines the interface for alert senders
type Sender interface {
	Send(ctx context.Context, payload *AlertPayload) error
	Name() string
}

// truncate cuts s to at most maxLen bytes on a rune boundary
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
