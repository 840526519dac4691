package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/procmigrate/internal/llm"
	"github.com/roach88/procmigrate/internal/sqltext"
)

// Completer is the generation service as seen by this package.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Options tunes translation requests.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	ChunkSize   int

	// Language is the procedural language named in the closing clause.
	Language string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Model:       "gpt-3.5-turbo",
		MaxTokens:   1500,
		Temperature: 0.2,
		ChunkSize:   DefaultChunkSize,
		Language:    sqltext.DefaultLanguage,
	}
}

// Translator converts whole procedure definitions, one chunk per request.
type Translator struct {
	client Completer
	opts   Options
	logger *slog.Logger
}

// NewTranslator returns a Translator using client for every request.
func NewTranslator(client Completer, opts Options, logger *slog.Logger) *Translator {
	if opts.Language == "" {
		opts.Language = sqltext.DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{client: client, opts: opts, logger: logger}
}

// Translate returns the PostgreSQL artifact for one procedure definition.
//
// Chunks are sent strictly in order. Any request failure aborts the
// procedure. When the last reply lacks the closing clause, the closer is
// appended to the assembled text.
func (t *Translator) Translate(ctx context.Context, name, definition string) (string, error) {
	chunks := Split(definition, t.opts.ChunkSize)
	log := t.logger.With("procedure", name)

	var buf strings.Builder
	var last string
	for _, c := range chunks {
		log.Debug("translating chunk", "part", c.Index+1, "of", c.Total, "lines", len(c.Lines))

		reply, err := t.client.Complete(ctx, llm.Request{
			System:      translateSystemPrompt,
			User:        ChunkPrompt(c, t.opts.Language),
			Model:       t.opts.Model,
			MaxTokens:   t.opts.MaxTokens,
			Temperature: t.opts.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf("translate chunk %d/%d: %w", c.Index+1, c.Total, err)
		}

		appendReply(&buf, reply)
		last = reply
	}

	if !sqltext.IsComplete(last, t.opts.Language) {
		log.Info("closing clause missing, appending", "closer", sqltext.Closer(t.opts.Language))
		if s := buf.String(); s != "" && !strings.HasSuffix(s, "\n") {
			buf.WriteByte('\n')
		}
		buf.WriteString(sqltext.Closer(t.opts.Language))
	}

	return buf.String(), nil
}

// appendReply adds reply to buf, separating it from the previous reply with a
// newline unless that one already ends in whitespace.
func appendReply(buf *strings.Builder, reply string) {
	if s := buf.String(); s != "" && reply != "" {
		switch s[len(s)-1] {
		case ' ', '\t', '\r', '\n':
		default:
			buf.WriteByte('\n')
		}
	}
	buf.WriteString(reply)
}
