// Package llm is a minimal client for OpenAI-compatible chat-completions
// services.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const completionsPath = "/chat/completions"

// maxErrorBody bounds how much of a failed reply ends up in error messages.
const maxErrorBody = 512

// Config holds the connection settings of the generation service.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Request is a single system+user exchange.
type Request struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client posts chat-completion requests. It never retries; callers decide
// what a failure means for their unit of work.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient builds a client for cfg.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("generation base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("generation API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{http: httpClient, logger: logger}, nil
}

// Complete sends req and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := ChatRequest{
		Model: req.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: req.System},
			{Role: RoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(completionsPath)
	if err != nil {
		return "", &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	if !resp.IsSuccess() {
		return "", &Error{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode(),
			Message:    truncate(resp.String(), maxErrorBody),
		}
	}

	var parsed ChatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &Error{Kind: KindMalformedResponse, Message: "decode response", Err: err}
	}
	choice, err := parsed.FirstChoice()
	if err != nil {
		return "", err
	}

	attrs := []any{"model", parsed.Model, "elapsed", time.Since(start), "finish_reason", choice.FinishReason}
	if parsed.Usage != nil {
		attrs = append(attrs, "completion_tokens", parsed.Usage.CompletionTokens)
	}
	c.logger.Debug("completion received", attrs...)
	if choice.FinishReason == "length" {
		c.logger.Warn("completion truncated at token limit", "model", parsed.Model, "max_tokens", req.MaxTokens)
	}

	return *choice.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
