package migrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procmigrate/internal/artifact"
	"github.com/roach88/procmigrate/internal/source"
	"github.com/roach88/procmigrate/internal/translate"
)

const testDir = "ConvertedProcedures"

const completeText = "CREATE OR REPLACE FUNCTION public.getorders() RETURNS void AS $$\nBEGIN\nEND;\n$$ LANGUAGE plpgsql;"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*artifact.Store, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return artifact.NewStore(fsys, testDir), fsys
}

func newTestConverter(c translate.Completer, store *artifact.Store, rec Recorder, opts ConvertOptions) *Converter {
	tr := translate.NewTranslator(c, translate.DefaultOptions(), quietLogger())
	return NewConverter(tr, store, rec, opts, quietLogger())
}

func newTestRepairer(exec Executor, c translate.Completer, store *artifact.Store, rec Recorder) *Repairer {
	corr := translate.NewCorrector(c, translate.CorrectorOptions{Model: "gpt-4o", Temperature: 0.2})
	return NewRepairer(exec, corr, store, rec, RepairOptions{MaxAttempts: 3}, quietLogger())
}

func makeDefinition(lines int) string {
	parts := make([]string, lines)
	for i := range parts {
		parts[i] = fmt.Sprintf("    SELECT %d;", i)
	}
	return strings.Join(parts, "\n")
}

func readFile(t *testing.T, fsys afero.Fs, parts ...string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, filepath.Join(append([]string{testDir}, parts...)...))
	require.NoError(t, err)
	return string(data)
}

func exists(t *testing.T, fsys afero.Fs, parts ...string) bool {
	t.Helper()
	ok, err := afero.Exists(fsys, filepath.Join(append([]string{testDir}, parts...)...))
	require.NoError(t, err)
	return ok
}

// eventLog records events in order.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Record(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) outcomes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Outcome
	}
	return out
}

type staticSource struct {
	procs []source.Procedure
	err   error
}

func (s staticSource) ListProcedures(context.Context) ([]source.Procedure, error) {
	return s.procs, s.err
}

// runLog is a RunTracker remembering final statuses.
type runLog struct {
	mu       sync.Mutex
	next     int
	kinds    []string
	statuses map[string]string
}

func (r *runLog) StartRun(_ context.Context, kind string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.kinds = append(r.kinds, kind)
	return fmt.Sprintf("run-%d", r.next), nil
}

func (r *runLog) FinishRun(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]string{}
	}
	r.statuses[id] = status
	return nil
}
