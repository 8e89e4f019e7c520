package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordSender sends alerts to Discord via webhook
type DiscordSender struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordSender creates a new Discord sender
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Sender
func (s *DiscordSender) Name() string {
	return "discord"
}

// Send sends the alert to Discord
func (s *DiscordSender) Send(ctx context.Context, payload *AlertPayload) error {
	webhookPayload := map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(payload)},
	}

	body, err := json.Marshal(webhookPayload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (s *DiscordSender) buildEmbed(payload *AlertPayload) map[string]interface{} {
	var title string
	var color int
	switch payload.Severity {
	case SeverityAlert:
		title = "🚨 High conviction edge (ALERT)"
		color = 0xFF0000 // Red
	default:
		title = "📈 Mispriced market (WARN)"
		color = 0xFFA500 // Orange
	}

	description := fmt.Sprintf("**%s**\nPrice **%.2f** vs fair value **%.2f** (edge **%+.1f%%**)",
		truncate(payload.Title, 200),
		payload.CurrentPrice,
		payload.FairValue,
		payload.EdgePercent(),
	)

	fields := []map[string]interface{}{
		{
			"name":   "Source",
			"value":  payload.Source,
			"inline": true,
		},
		{
			"name":   "Topic",
			"value":  payload.Topic,
			"inline": true,
		},
		{
			"name":   "Confidence",
			"value":  fmt.Sprintf("**%d/100**", payload.Confidence),
			"inline": true,
		},
	}

	if payload.Rationale != "" {
		fields = append(fields, map[string]interface{}{
			"name":   "Rationale",
			"value":  truncate(payload.Rationale, 1000),
			"inline": false,
		})
	}

	footer := map[string]interface{}{
		"text": fmt.Sprintf("edgescan • %s • scan %s • %s", payload.Environment, payload.ScanID, payload.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")),
	}

	return map[string]interface{}{
		"title":       title,
		"url":         payload.Link,
		"description": description,
		"color":       color,
		"fields":      fields,
		"footer":      footer,
		"timestamp":   payload.Timestamp.Format(time.RFC3339),
	}
}
