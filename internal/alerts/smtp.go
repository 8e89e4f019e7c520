package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPSender sends alerts via email
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

// Name implements Sender
func (s *SMTPSender) Name() string {
	return "smtp"
}

// Send sends the alert via email. net/smtp has no context support, so ctx is
// only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, payload *AlertPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, s.to, []byte(s.buildMessage(payload))); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

// headerValue folds CR and LF out of untrusted text written into a header line
var headerValue = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func (s *SMTPSender) buildMessage(payload *AlertPayload) string {
	subject := fmt.Sprintf("[%s] %+.1f%% edge: %s", payload.Severity, payload.EdgePercent(), truncate(headerValue.Replace(payload.Title), 120))

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue.Replace(s.from))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue.Replace(strings.Join(s.to, ", ")))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(buildEmailBody(payload))
	return b.String()
}

func buildEmailBody(payload *AlertPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EDGESCAN ALERT - %s\n", payload.Severity)
	b.WriteString("═══════════════════════════════════════\n\n")
	b.WriteString("MARKET\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Title:          %s\n", payload.Title)
	fmt.Fprintf(&b, "Source:         %s\n", payload.Source)
	fmt.Fprintf(&b, "Topic:          %s\n", payload.Topic)
	fmt.Fprintf(&b, "Link:           %s\n\n", payload.Link)
	b.WriteString("ESTIMATE\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Current price:  %.2f\n", payload.CurrentPrice)
	fmt.Fprintf(&b, "Fair value:     %.2f\n", payload.FairValue)
	fmt.Fprintf(&b, "Edge:           %+.1f%%\n", payload.EdgePercent())
	fmt.Fprintf(&b, "Confidence:     %d/100\n\n", payload.Confidence)
	if payload.Rationale != "" {
		fmt.Fprintf(&b, "Rationale:\n%s\n\n", payload.Rationale)
	}
	b.WriteString("═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Scan: %s\n", payload.ScanID)
	fmt.Fprintf(&b, "Environment: %s\n", payload.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", payload.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("\nNote: fair values are model estimates, not trading advice.\n")
	return b.String()
}
