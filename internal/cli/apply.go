package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/procmigrate/internal/migrate"
	"github.com/roach88/procmigrate/internal/server"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Execute pending artifacts against PostgreSQL, correcting failures",
		Long: `Execute every pending artifact in the artifact directory against the target
database. Artifacts that run are moved to accept/. Failures are sent back to
the generation service for correction up to repair.max_attempts times; a
corrected artifact is rewritten and moved to acceptWithGpt/, one that never
runs is moved unchanged to decline/.

Example:
  procmigrate apply --config procmigrate.yaml
  procmigrate apply --format json > apply-report.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, rootOpts)
		},
	}
}

func runApply(cmd *cobra.Command, opts *RootOptions) error {
	env, err := newEnvironment(cmd, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	p, err := env.pipeline(ctx, opts.Deps, stages{apply: true})
	if err != nil {
		return err
	}

	report, err := p.Apply(ctx)
	if err != nil {
		return runFailure(env.out, "apply", err)
	}

	if env.out.Format == "json" {
		if err := env.out.SuccessForRun(report.RunID, server.NewApplyResponse(report)); err != nil {
			return err
		}
	} else {
		printApplyReport(env.out.Writer, report)
	}

	// Declined artifacts are a normal outcome; only files the engine could
	// not process fail the command.
	if n := report.Failed(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d artifacts could not be processed", n, len(report.Results)))
	}
	return nil
}

func printApplyReport(w io.Writer, r migrate.ApplyReport) {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "  %-24s %s: %v\n", "failed", res.File, res.Err)
		case len(res.Attempts) > 0:
			fmt.Fprintf(w, "  %-24s %s (%d attempts)\n", res.State, res.File, len(res.Attempts))
		default:
			fmt.Fprintf(w, "  %-24s %s\n", res.State, res.File)
		}
	}
	fmt.Fprintf(w, "Run %s: %d artifacts (%d applied, %d corrected, %d declined, %d failed)\n",
		r.RunID, len(r.Results),
		r.Count(migrate.Applied), r.Count(migrate.AppliedWithCorrection), r.Count(migrate.Declined),
		r.Failed())
}
