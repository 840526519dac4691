package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/procmigrate/internal/artifact"
	"github.com/roach88/procmigrate/internal/config"
	"github.com/roach88/procmigrate/internal/llm"
	"github.com/roach88/procmigrate/internal/metrics"
	"github.com/roach88/procmigrate/internal/migrate"
	"github.com/roach88/procmigrate/internal/pgexec"
	"github.com/roach88/procmigrate/internal/source"
	"github.com/roach88/procmigrate/internal/store"
	"github.com/roach88/procmigrate/internal/translate"
)

// environment is everything a command builds from configuration.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	ledger  *store.Store // nil when the ledger is disabled
	metrics *metrics.Metrics
	out     *OutputFormatter
	closers []func() error
}

func newEnvironment(cmd *cobra.Command, opts *RootOptions) (*environment, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(config.LoadOptions{Path: opts.ConfigPath, EnvFile: opts.EnvFile})
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to load configuration", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)
	if err != nil {
		return nil, out.Fail(ExitCommandError, CodeConfig, "failed to configure logging", err)
	}

	env := &environment{cfg: cfg, logger: logger, metrics: metrics.New(), out: out}
	if cfg.Ledger.Enabled {
		st, err := store.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, out.Fail(ExitCommandError, CodeLedger, "failed to open run ledger", err)
		}
		env.ledger = st
		env.closers = append(env.closers, st.Close)
	}
	return env, nil
}

// Close releases everything opened by the environment, newest first.
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Error("error closing resource", "error", err)
		}
	}
}

func (e *environment) recorder() migrate.Recorder {
	if e.ledger == nil {
		return e.metrics
	}
	return migrate.MultiRecorder{e.ledger, e.metrics}
}

func (e *environment) runs() migrate.RunTracker {
	if e.ledger == nil {
		return nil
	}
	return e.ledger
}

// stages selects which halves of the pipeline to build.
type stages struct {
	convert bool
	apply   bool
}

// pipeline wires the configured systems, or the overrides in deps.
func (e *environment) pipeline(ctx context.Context, deps *Dependencies, want stages) (*migrate.Pipeline, error) {
	if deps == nil {
		deps = &Dependencies{}
	}
	cfg := e.cfg

	if want.convert {
		if err := cfg.RequireConvert(); err != nil {
			return nil, e.out.Fail(ExitCommandError, CodeConfig, "incomplete configuration for convert", err)
		}
	}
	if want.apply {
		if err := cfg.RequireApply(); err != nil {
			return nil, e.out.Fail(ExitCommandError, CodeConfig, "incomplete configuration for apply", err)
		}
	}

	artifacts := artifact.NewOSStore(cfg.Artifacts.Dir)
	client, err := llm.NewClient(llm.Config{
		BaseURL: cfg.Generation.BaseURL,
		APIKey:  cfg.Generation.APIKey,
		Timeout: cfg.Generation.Timeout,
	}, e.logger)
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, CodeSetup, "failed to create generation client", err)
	}

	var src migrate.ProcedureSource
	var conv *migrate.Converter
	if want.convert {
		src = deps.Source
		if src == nil {
			db, err := source.Open(ctx, cfg.Source.DSN)
			if err != nil {
				return nil, e.out.Fail(ExitCommandError, CodeSetup, "failed to connect to source database", err)
			}
			e.closers = append(e.closers, db.Close)
			src = source.NewReader(db, e.logger)
		}

		tr := translate.NewTranslator(client, translate.Options{
			Model:       cfg.Generation.TranslateModel,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			ChunkSize:   cfg.Translate.ChunkSize,
			Language:    cfg.Translate.Language,
		}, e.logger)
		conv = migrate.NewConverter(tr, artifacts, e.recorder(), migrate.ConvertOptions{
			Language:    cfg.Translate.Language,
			StopOnError: cfg.Translate.StopOnError,
		}, e.logger)
	}

	var rep *migrate.Repairer
	if want.apply {
		exec := deps.Executor
		if exec == nil {
			pg, err := pgexec.New(cfg.Target.DSN, cfg.Target.SearchPath, e.logger)
			if err != nil {
				return nil, e.out.Fail(ExitCommandError, CodeSetup, "invalid target database settings", err)
			}
			exec = pg
		}

		corr := translate.NewCorrector(client, translate.CorrectorOptions{
			Model:       cfg.Generation.CorrectModel,
			MaxTokens:   cfg.Generation.CorrectMaxTokens,
			Temperature: cfg.Generation.Temperature,
		})
		rep = migrate.NewRepairer(exec, corr, artifacts, e.recorder(), migrate.RepairOptions{
			MaxAttempts: cfg.Repair.MaxAttempts,
			Backoff:     cfg.Repair.Backoff,
			Describe:    pgexec.ErrorMessage,
		}, e.logger)
	}

	dir := cfg.Artifacts.Dir
	return migrate.NewPipeline(src, conv, rep, artifacts, e.runs(), migrate.PipelineOptions{
		Archive: cfg.Artifacts.Archive,
		Lock: func() (func() error, error) {
			return artifact.Lock(dir)
		},
	}, e.logger), nil
}
