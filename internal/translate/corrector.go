package translate

import (
	"context"
	"fmt"

	"github.com/roach88/procmigrate/internal/llm"
)

// CorrectorOptions tunes correction requests. MaxTokens of zero leaves the
// limit to the service.
type CorrectorOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Corrector asks the generation service to fix SQL that PostgreSQL rejected.
type Corrector struct {
	client Completer
	opts   CorrectorOptions
}

// NewCorrector returns a Corrector using client.
func NewCorrector(client Completer, opts CorrectorOptions) *Corrector {
	return &Corrector{client: client, opts: opts}
}

// Correct returns the service's reply, unmodified. Callers strip fences.
func (c *Corrector) Correct(ctx context.Context, sql, errMessage string) (string, error) {
	reply, err := c.client.Complete(ctx, llm.Request{
		System:      correctSystemPrompt,
		User:        CorrectionPrompt(sql, errMessage),
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("request correction: %w", err)
	}
	return reply, nil
}
