// Package oracle asks an OpenAI-compatible chat completion endpoint to
// estimate fair probabilities for a batch of listings.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ErrOracleUnavailable wraps every failure to get usable text back
var ErrOracleUnavailable = errors.New("oracle unavailable")

// Config holds the oracle connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a single-shot scoring client
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     *logrus.Logger
}

// NewClient creates a new oracle client
func NewClient(cfg Config, log *logrus.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// Score sends the batch with the given instructions and returns the raw reply text
func (c *Client) Score(ctx context.Context, batch []market.Listing, instructions string) (_ string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest("oracle", "chat_completions", time.Since(start), err)
	}()

	payload, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("%w: encode batch: %v", ErrOracleUnavailable, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrOracleUnavailable)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty content", ErrOracleUnavailable)
	}

	c.log.WithFields(logrus.Fields{
		"model":             c.model,
		"batch_size":        len(batch),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Info("Oracle scored batch")

	return content, nil
}
