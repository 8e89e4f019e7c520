package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers alerts via the Telegram Bot API
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat ID
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		apiBase: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Sender
func (t *TelegramSender) Name() string {
	return "telegram"
}

// Send posts the alert to the configured chat using sendMessage
func (t *TelegramSender) Send(ctx context.Context, payload *AlertPayload) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	body, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     formatTelegram(payload),
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", redactURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// redactURL drops the request URL, which carries the bot token, from
// transport errors
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// Plain text keeps market titles from breaking Markdown parsing
func formatTelegram(p *AlertPayload) string {
	return fmt.Sprintf("[%s] %s\nSource: %s | Topic: %s\nPrice %.2f -> fair %.2f (edge %+.1f%%)\nConfidence: %d/100\n%s\n%s",
		p.Severity,
		p.Title,
		p.Source,
		p.Topic,
		p.CurrentPrice,
		p.FairValue,
		p.EdgePercent(),
		p.Confidence,
		truncate(p.Rationale, 500),
		p.Link,
	)
}
