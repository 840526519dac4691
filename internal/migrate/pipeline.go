package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/procmigrate/internal/artifact"
)

// Run kinds and statuses as stored by a RunTracker.
const (
	RunKindConvert = "convert"
	RunKindApply   = "apply"

	RunSucceeded = "succeeded"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

// RunTracker opens and closes runs.
type RunTracker interface {
	StartRun(ctx context.Context, kind string) (string, error)
	FinishRun(ctx context.Context, id, status string) error
}

// EphemeralRuns hands out UUIDv7 run IDs without persisting anything.
type EphemeralRuns struct{}

// StartRun implements RunTracker.
func (EphemeralRuns) StartRun(context.Context, string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// FinishRun implements RunTracker.
func (EphemeralRuns) FinishRun(context.Context, string, string) error {
	return nil
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	// Archive zips existing artifacts before a convert run.
	Archive bool
	// Lock acquires cross-process exclusion for the duration of a run.
	// Nil means no locking.
	Lock func() (unlock func() error, err error)
	// Now is the clock used for archive names. Defaults to time.Now.
	Now func() time.Time
}

// ConvertReport summarizes a convert run.
type ConvertReport struct {
	RunID   string
	Archive string
	Results []ConversionResult
}

// Failed counts procedures that could not be converted.
func (r ConvertReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// ApplyReport summarizes an apply run.
type ApplyReport struct {
	RunID   string
	Results []ApplyResult
}

// Count returns how many artifacts ended in state.
func (r ApplyReport) Count(state State) int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.State == state {
			n++
		}
	}
	return n
}

// Failed counts artifacts left uncategorized by an error.
func (r ApplyReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline wires a source, the conversion loop and the repair engine into
// the two top-level operations.
type Pipeline struct {
	source    ProcedureSource
	converter *Converter
	repairer  *Repairer
	store     *artifact.Store
	runs      RunTracker
	opts      PipelineOptions
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. runs may be nil, in which case run IDs
// are generated but not persisted.
func NewPipeline(src ProcedureSource, conv *Converter, rep *Repairer, store *artifact.Store, runs RunTracker, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if runs == nil {
		runs = EphemeralRuns{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: src, converter: conv, repairer: rep, store: store, runs: runs, opts: opts, logger: logger}
}

// Convert archives the working directory, lists the source procedures and
// runs the conversion loop over them.
func (p *Pipeline) Convert(ctx context.Context) (report ConvertReport, err error) {
	if p.source == nil || p.converter == nil {
		return report, errors.New("convert: pipeline has no source or converter")
	}

	unlock, err := p.lock()
	if err != nil {
		return report, err
	}
	defer unlock()

	report.RunID, err = p.runs.StartRun(ctx, RunKindConvert)
	if err != nil {
		return report, fmt.Errorf("start run: %w", err)
	}
	logger := p.logger.With("run", report.RunID)
	logger.Info("convert run started")
	defer func() { p.finishRun(ctx, report.RunID, err, report.Failed()) }()

	if p.opts.Archive {
		report.Archive, err = p.store.Archive(p.opts.Now())
		if err != nil {
			return report, fmt.Errorf("archive artifacts: %w", err)
		}
		if report.Archive == "" {
			logger.Info("nothing to archive", "dir", p.store.Dir())
		} else {
			logger.Info("archived existing artifacts", "archive", report.Archive)
		}
	}

	procs, err := p.source.ListProcedures(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("procedures listed", "count", len(procs))

	report.Results = p.converter.Run(ctx, report.RunID, procs)
	logger.Info("convert run finished", "procedures", len(report.Results), "failed", report.Failed())
	return report, nil
}

// Apply runs the repair engine over every uncategorized artifact.
func (p *Pipeline) Apply(ctx context.Context) (report ApplyReport, err error) {
	if p.repairer == nil {
		return report, errors.New("apply: pipeline has no repairer")
	}

	unlock, err := p.lock()
	if err != nil {
		return report, err
	}
	defer unlock()

	report.RunID, err = p.runs.StartRun(ctx, RunKindApply)
	if err != nil {
		return report, fmt.Errorf("start run: %w", err)
	}
	logger := p.logger.With("run", report.RunID)
	logger.Info("apply run started")
	defer func() { p.finishRun(ctx, report.RunID, err, report.Failed()) }()

	report.Results, err = p.repairer.ApplyAll(ctx, report.RunID)
	if err != nil {
		return report, err
	}
	logger.Info("apply run finished",
		"applied", report.Count(Applied),
		"corrected", report.Count(AppliedWithCorrection),
		"declined", report.Count(Declined),
		"failed", report.Failed())
	return report, nil
}

func (p *Pipeline) lock() (func(), error) {
	if p.opts.Lock == nil {
		return func() {}, nil
	}
	unlock, err := p.opts.Lock()
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			p.logger.Warn("failed to release lock", "error", err)
		}
	}, nil
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, err error, failed int) {
	status := RunSucceeded
	switch {
	case err != nil:
		status = RunFailed
	case failed > 0:
		status = RunPartial
	}
	// The run row is closed even when ctx was cancelled.
	if ferr := p.runs.FinishRun(context.WithoutCancel(ctx), runID, status); ferr != nil {
		p.logger.Warn("failed to finish run", "run", runID, "error", ferr)
	}
}
