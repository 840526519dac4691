package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/procmigrate/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	RunID   string
	Subject string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs from the run ledger",
		Long: `List recent convert and apply runs, the events of one run, or every event
recorded for one procedure or artifact file.

Example:
  procmigrate history
  procmigrate history --run 0190d3c2-8f4e-7a31-9b6c-2f1e0d4c5b6a
  procmigrate history --subject dbo.GetOrders.sql --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the events of one run")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "show every event for one procedure or artifact file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs to list (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("run", "subject")

	return cmd
}

// RunView is the JSON form of a run.
type RunView struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// EventView is the JSON form of an event.
type EventView struct {
	Seq        int64     `json:"seq"`
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	Subject    string    `json:"subject"`
	Outcome    string    `json:"outcome"`
	Attempt    int       `json:"attempt,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	env, err := newEnvironment(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	if env.ledger == nil {
		return env.out.Fail(ExitCommandError, CodeLedger, "run ledger is disabled",
			errors.New("set ledger.enabled to true to record history"))
	}
	ctx := cmd.Context()

	switch {
	case opts.RunID != "":
		if _, err := env.ledger.GetRun(ctx, opts.RunID); err != nil {
			return env.out.Fail(ExitCommandError, CodeLedger, "failed to read run", err)
		}
		events, err := env.ledger.Events(ctx, opts.RunID)
		if err != nil {
			return env.out.Fail(ExitCommandError, CodeLedger, "failed to read events", err)
		}
		return printEvents(env.out, opts.RunID, events)

	case opts.Subject != "":
		events, err := env.ledger.SubjectEvents(ctx, opts.Subject)
		if err != nil {
			return env.out.Fail(ExitCommandError, CodeLedger, "failed to read events", err)
		}
		return printEvents(env.out, "", events)

	default:
		runs, err := env.ledger.ListRuns(ctx, opts.Limit)
		if err != nil {
			return env.out.Fail(ExitCommandError, CodeLedger, "failed to list runs", err)
		}
		return printRuns(env.out, runs)
	}
}

func printRuns(out *OutputFormatter, runs []store.Run) error {
	if out.Format == "json" {
		views := make([]RunView, 0, len(runs))
		for _, r := range runs {
			v := RunView{ID: r.ID, Kind: r.Kind, Status: r.Status, StartedAt: r.StartedAt}
			if !r.FinishedAt.IsZero() {
				finished := r.FinishedAt
				v.FinishedAt = &finished
			}
			views = append(views, v)
		}
		return out.Success(views)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out.Writer, "%s  %-7s  %-9s  %s  %s\n",
			r.ID, r.Kind, r.Status, r.StartedAt.Local().Format(time.DateTime), duration(r))
	}
	return nil
}

func duration(r store.Run) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func printEvents(out *OutputFormatter, runID string, events []store.EventRecord) error {
	if out.Format == "json" {
		views := make([]EventView, 0, len(events))
		for _, e := range events {
			views = append(views, EventView{
				Seq:        e.Seq,
				RunID:      e.RunID,
				Stage:      string(e.Stage),
				Subject:    e.Subject,
				Outcome:    e.Outcome,
				Attempt:    e.Attempt,
				Detail:     e.Detail,
				RecordedAt: e.RecordedAt,
			})
		}
		return out.SuccessForRun(runID, views)
	}

	if len(events) == 0 {
		fmt.Fprintln(out.Writer, "No events recorded.")
		return nil
	}
	for _, e := range events {
		writeEvent(out.Writer, e)
	}
	return nil
}

func writeEvent(w io.Writer, e store.EventRecord) {
	fmt.Fprintf(w, "#%-5d %-7s %-16s %s", e.Seq, e.Stage, e.Outcome, e.Subject)
	if e.Attempt > 0 {
		fmt.Fprintf(w, " (attempt %d)", e.Attempt)
	}
	if e.Detail != "" {
		fmt.Fprintf(w, ": %s", e.Detail)
	}
	fmt.Fprintln(w)
}
