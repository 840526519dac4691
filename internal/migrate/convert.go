package migrate

import (
	"context"
	"log/slog"

	"github.com/roach88/procmigrate/internal/artifact"
	"github.com/roach88/procmigrate/internal/source"
	"github.com/roach88/procmigrate/internal/sqltext"
)

// Action is what the conversion loop did for one procedure.
type Action string

const (
	// ActionProduced means no artifact existed and one was generated.
	ActionProduced Action = "produced"
	// ActionReused means a complete artifact was kept without generation.
	ActionReused Action = "reused"
	// ActionRegenerated means an incomplete artifact was deleted and redone.
	ActionRegenerated Action = "regenerated"
)

// ConversionResult is the outcome for one procedure. Err is set when the
// procedure could not be converted; Artifact is then zero or partial.
type ConversionResult struct {
	Procedure string
	Action    Action
	Artifact  Artifact
	Err       error
}

// ConvertOptions tunes the conversion loop.
type ConvertOptions struct {
	// Language is the procedural language named in the closing clause.
	Language string
	// StopOnError ends the loop at the first failed procedure.
	StopOnError bool
}

// Converter is the resumable conversion loop.
type Converter struct {
	translator Translator
	store      *artifact.Store
	recorder   Recorder
	opts       ConvertOptions
	logger     *slog.Logger
}

// NewConverter creates a conversion loop writing artifacts to store.
// recorder may be nil.
func NewConverter(t Translator, store *artifact.Store, recorder Recorder, opts ConvertOptions, logger *slog.Logger) *Converter {
	if opts.Language == "" {
		opts.Language = sqltext.DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{translator: t, store: store, recorder: recorder, opts: opts, logger: logger}
}

// Run converts procs in order and returns one result per procedure
// processed. A complete artifact on disk is reused with no generation
// calls; an incomplete one is deleted and regenerated.
func (c *Converter) Run(ctx context.Context, runID string, procs []source.Procedure) []ConversionResult {
	results := make([]ConversionResult, 0, len(procs))
	for _, p := range procs {
		var res ConversionResult
		if err := ctx.Err(); err != nil {
			res = ConversionResult{Procedure: p.Name, Err: err}
		} else {
			res = c.convert(ctx, p)
		}
		results = append(results, res)

		ev := Event{RunID: runID, Stage: StageConvert, Subject: p.Name, Outcome: string(res.Action)}
		if res.Err != nil {
			ev.Outcome = OutcomeFailed
			ev.Detail = res.Err.Error()
		}
		record(ctx, c.recorder, c.logger, ev)

		if res.Err != nil && c.opts.StopOnError {
			c.logger.Error("stopping conversion after failure", "procedure", p.Name, "error", res.Err)
			break
		}
	}
	return results
}

func (c *Converter) convert(ctx context.Context, p source.Procedure) ConversionResult {
	res := ConversionResult{Procedure: p.Name, Action: ActionProduced}
	logger := c.logger.With("procedure", p.Name)

	exists, err := c.store.Exists(p.Name)
	if err != nil {
		res.Err = err
		return res
	}

	if exists {
		text, err := c.store.Load(p.Name)
		if err != nil {
			res.Err = err
			return res
		}
		if sqltext.IsComplete(text, c.opts.Language) {
			logger.Info("artifact already complete, reusing")
			res.Action = ActionReused
			res.Artifact = Artifact{ProcedureName: p.Name, Text: text, State: Complete}
			return res
		}

		logger.Info("artifact incomplete, regenerating")
		if err := c.store.Remove(p.Name); err != nil {
			res.Err = err
			return res
		}
		res.Action = ActionRegenerated
	}

	logger.Info("converting procedure")
	text, err := c.translator.Translate(ctx, p.Name, p.Definition)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		res.Err = err
		return res
	}

	state := Pending
	if sqltext.IsComplete(text, c.opts.Language) {
		state = Complete
	}
	res.Artifact = Artifact{ProcedureName: p.Name, Text: text, State: state}

	if err := c.store.Save(p.Name, text); err != nil {
		logger.Error("failed to persist artifact", "error", err)
		res.Err = err
		return res
	}
	logger.Info("conversion completed", "action", res.Action)
	return res
}
