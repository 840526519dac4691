package migrate

import (
	"context"
	"log/slog"

	"github.com/roach88/procmigrate/internal/source"
)

// State is the lifecycle state of an artifact.
type State string

const (
	// Pending artifacts exist on disk without the closing clause.
	Pending State = "pending"
	// Complete artifacts carry the closing clause and await apply.
	Complete State = "complete"
	// Applied artifacts executed as generated.
	Applied State = "applied"
	// AppliedWithCorrection artifacts executed after a correction.
	AppliedWithCorrection State = "applied_with_correction"
	// Declined artifacts exhausted the correction budget.
	Declined State = "declined"
)

// Artifact is the translated text of one procedure.
type Artifact struct {
	ProcedureName string
	Text          string
	State         State
}

// CorrectionAttempt is one round of the correction loop.
type CorrectionAttempt struct {
	Number     int
	PriorError string
	Candidate  string
}

// Stage names the run kind an event belongs to.
type Stage string

const (
	StageConvert Stage = "convert"
	StageApply   Stage = "apply"
)

// Event outcomes.
const (
	OutcomeProduced    = "produced"
	OutcomeReused      = "reused"
	OutcomeRegenerated = "regenerated"
	OutcomeFailed      = "failed"

	OutcomeApplied       = "applied"
	OutcomeAttemptFailed = "attempt_failed"
	OutcomeCorrected     = "corrected"
	OutcomeDeclined      = "declined"
)

// Event is one recorded transition. Subject is a procedure name during
// convert and an artifact file name during apply. Attempt is the correction
// attempt number, zero outside the correction loop.
type Event struct {
	RunID   string
	Stage   Stage
	Subject string
	Outcome string
	Attempt int
	Detail  string
}

// Terminal reports whether the event closes the subject for this run.
func (e Event) Terminal() bool {
	return e.Outcome != OutcomeAttemptFailed
}

// IsCorrectionAttempt reports whether the event is the result of one
// correction round.
func (e Event) IsCorrectionAttempt() bool {
	return e.Stage == StageApply &&
		(e.Outcome == OutcomeAttemptFailed || e.Outcome == OutcomeCorrected)
}

// Recorder receives every transition.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// MultiRecorder fans an event out to several recorders. Every recorder sees
// the event; the first error is returned.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, ev Event) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Translator turns one procedure definition into target-dialect text.
type Translator interface {
	Translate(ctx context.Context, name, definition string) (string, error)
}

// Corrector asks for a corrected version of sql given the failure message.
type Corrector interface {
	Correct(ctx context.Context, sql, errMessage string) (string, error)
}

// Executor runs a statement against the target database.
type Executor interface {
	Execute(ctx context.Context, sql string) error
}

// ProcedureSource lists source procedures.
type ProcedureSource interface {
	ListProcedures(ctx context.Context) ([]source.Procedure, error)
}

// record forwards ev to rec. Recording failures are logged, never fatal.
func record(ctx context.Context, rec Recorder, logger *slog.Logger, ev Event) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, ev); err != nil {
		logger.Warn("failed to record event",
			"run", ev.RunID, "subject", ev.Subject, "outcome", ev.Outcome, "error", err)
	}
}
