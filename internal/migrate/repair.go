package migrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roach88/procmigrate/internal/artifact"
	"github.com/roach88/procmigrate/internal/sqltext"
)

// DefaultMaxAttempts is the correction budget per artifact.
const DefaultMaxAttempts = 3

// RepairOptions tunes the apply-and-repair engine.
type RepairOptions struct {
	// MaxAttempts is the number of correction rounds before declining.
	MaxAttempts int
	// Backoff is the pause between correction rounds.
	Backoff time.Duration
	// Describe renders an execution error for the correction prompt.
	// Defaults to err.Error().
	Describe func(error) string
}

// ApplyResult is the outcome for one artifact file. Err is set only for
// failures that left the file uncategorized (filesystem errors or
// cancellation); execution failures are absorbed by the correction loop.
type ApplyResult struct {
	File     string
	State    State
	Path     string
	Attempts []CorrectionAttempt
	Err      error
}

// Repairer is the apply-and-repair engine.
type Repairer struct {
	exec      Executor
	corrector Corrector
	store     *artifact.Store
	recorder  Recorder
	opts      RepairOptions
	logger    *slog.Logger
}

// NewRepairer creates an engine applying artifacts from store with exec.
// recorder may be nil.
func NewRepairer(exec Executor, corrector Corrector, store *artifact.Store, recorder Recorder, opts RepairOptions, logger *slog.Logger) *Repairer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.Describe == nil {
		opts.Describe = func(err error) string { return err.Error() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{exec: exec, corrector: corrector, store: store, recorder: recorder, opts: opts, logger: logger}
}

// ApplyAll applies every uncategorized artifact, sorted by file name.
// Per-file failures are reported in the results; the error is non-nil only
// when the files cannot be listed or ctx is cancelled.
func (r *Repairer) ApplyAll(ctx context.Context, runID string) ([]ApplyResult, error) {
	files, err := r.store.Pending()
	if err != nil {
		return nil, err
	}

	results := make([]ApplyResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.Apply(ctx, runID, file))
	}
	return results, nil
}

// Apply executes one artifact file and relocates it by outcome:
// accept when it runs as generated, acceptWithGpt when a correction runs
// (the file is overwritten with the corrected text), decline when every
// correction fails (the file keeps its original text).
func (r *Repairer) Apply(ctx context.Context, runID, file string) ApplyResult {
	res := ApplyResult{File: file}
	logger := r.logger.With("file", file)

	text, err := r.store.ReadFile(file)
	if err != nil {
		return r.fail(ctx, runID, res, err)
	}

	candidate := sqltext.StripFences(text)
	logger.Info("applying artifact")
	execErr := r.exec.Execute(ctx, candidate)
	if execErr == nil {
		return r.finish(ctx, runID, res, artifact.Accepted, Applied, "")
	}

	lastError := r.opts.Describe(execErr)
	logger.Warn("apply failed, requesting correction", "error", lastError)

	var corrected string
	err = retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt := CorrectionAttempt{Number: len(res.Attempts) + 1, PriorError: lastError}
		logger.Info("correction attempt", "attempt", attempt.Number)

		reply, err := r.corrector.Correct(ctx, candidate, lastError)
		if err != nil {
			lastError = err.Error()
			res.Attempts = append(res.Attempts, attempt)
			r.attemptFailed(ctx, runID, file, attempt.Number, lastError)
			return retry.RetryableError(err)
		}

		attempt.Candidate = sqltext.StripFences(reply)
		res.Attempts = append(res.Attempts, attempt)
		candidate = attempt.Candidate

		if err := r.exec.Execute(ctx, candidate); err != nil {
			lastError = r.opts.Describe(err)
			r.attemptFailed(ctx, runID, file, attempt.Number, lastError)
			return retry.RetryableError(err)
		}
		corrected = candidate
		return nil
	})

	if err == nil {
		if err := r.store.WriteFile(file, corrected); err != nil {
			return r.fail(ctx, runID, res, err)
		}
		return r.finish(ctx, runID, res, artifact.AcceptedWithCorrection, AppliedWithCorrection, "")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return r.fail(ctx, runID, res, ctxErr)
	}
	return r.finish(ctx, runID, res, artifact.Declined, Declined, lastError)
}

// backoff allows MaxAttempts calls in total at a constant delay.
func (r *Repairer) backoff() retry.Backoff {
	delay := r.opts.Backoff
	constant := retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	})
	return retry.WithMaxRetries(uint64(r.opts.MaxAttempts-1), constant)
}

func (r *Repairer) attemptFailed(ctx context.Context, runID, file string, n int, message string) {
	r.logger.Warn("correction attempt failed", "file", file, "attempt", n, "error", message)
	record(ctx, r.recorder, r.logger, Event{
		RunID: runID, Stage: StageApply, Subject: file,
		Outcome: OutcomeAttemptFailed, Attempt: n, Detail: message,
	})
}

func (r *Repairer) finish(ctx context.Context, runID string, res ApplyResult, p artifact.Partition, state State, detail string) ApplyResult {
	path, err := r.store.Relocate(res.File, p)
	if err != nil {
		return r.fail(ctx, runID, res, err)
	}
	res.Path = path
	res.State = state

	ev := Event{RunID: runID, Stage: StageApply, Subject: res.File, Attempt: len(res.Attempts), Detail: detail}
	switch state {
	case Applied:
		ev.Outcome = OutcomeApplied
		r.logger.Info("artifact applied", "file", res.File)
	case AppliedWithCorrection:
		ev.Outcome = OutcomeCorrected
		r.logger.Info("artifact applied after correction", "file", res.File, "attempts", len(res.Attempts))
	default:
		ev.Outcome = OutcomeDeclined
		r.logger.Error("artifact declined", "file", res.File, "attempts", len(res.Attempts), "error", detail)
	}
	record(ctx, r.recorder, r.logger, ev)
	return res
}

func (r *Repairer) fail(ctx context.Context, runID string, res ApplyResult, err error) ApplyResult {
	r.logger.Error("apply failed", "file", res.File, "error", err)
	res.Err = err
	record(ctx, r.recorder, r.logger, Event{
		RunID: runID, Stage: StageApply, Subject: res.File,
		Outcome: OutcomeFailed, Attempt: len(res.Attempts), Detail: err.Error(),
	})
	return res
}
