package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procmigrate/internal/source"
	"github.com/roach88/procmigrate/internal/testutil"
)

var archiveTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPipeline_ConvertArchivesThenConverts(t *testing.T) {
	store, fsys := newTestStore(t)
	require.NoError(t, store.Save("dbo.Old", "leftover"))

	c := testutil.NewScriptedCompleter(testutil.Texts(completeText)...)
	conv := newTestConverter(c, store, nil, ConvertOptions{})
	runs := &runLog{}
	src := staticSource{procs: []source.Procedure{{Name: "dbo.GetOrders", Definition: "SELECT 1"}}}

	p := NewPipeline(src, conv, nil, store, runs, PipelineOptions{
		Archive: true,
		Now:     func() time.Time { return archiveTime },
	}, quietLogger())

	report, err := p.Convert(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, testDir+"/ConvertedProcedures_2024-05-01_12-00-00.zip", report.Archive)
	assert.True(t, exists(t, fsys, "ConvertedProcedures_2024-05-01_12-00-00.zip"))
	require.Len(t, report.Results, 1)
	assert.Equal(t, ActionProduced, report.Results[0].Action)
	assert.Zero(t, report.Failed())
	assert.Equal(t, []string{RunKindConvert}, runs.kinds)
	assert.Equal(t, RunSucceeded, runs.statuses["run-1"])
}

func TestPipeline_ConvertPartialWhenSomeFail(t *testing.T) {
	store, _ := newTestStore(t)
	c := testutil.NewScriptedCompleter(testutil.Reply{Err: errors.New("status 500")})
	conv := newTestConverter(c, store, nil, ConvertOptions{})
	runs := &runLog{}
	src := staticSource{procs: []source.Procedure{{Name: "dbo.A", Definition: "SELECT 1"}}}

	p := NewPipeline(src, conv, nil, store, runs, PipelineOptions{}, quietLogger())
	report, err := p.Convert(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, RunPartial, runs.statuses["run-1"])
}

func TestPipeline_ConvertSourceFailureFailsRun(t *testing.T) {
	store, _ := newTestStore(t)
	conv := newTestConverter(testutil.NewScriptedCompleter(), store, nil, ConvertOptions{})
	runs := &runLog{}

	p := NewPipeline(staticSource{err: errors.New("login failed")}, conv, nil, store, runs, PipelineOptions{}, quietLogger())
	_, err := p.Convert(context.Background())

	require.EqualError(t, err, "login failed")
	assert.Equal(t, RunFailed, runs.statuses["run-1"])
}

func TestPipeline_LockHeldForRun(t *testing.T) {
	store, _ := newTestStore(t)
	var locked, released int
	lockErr := errors.New("locked")

	p := NewPipeline(nil, nil, newTestRepairer(testutil.NewScriptedExecutor(), testutil.NewScriptedCompleter(), store, nil),
		store, nil, PipelineOptions{Lock: func() (func() error, error) {
			locked++
			if locked > 1 {
				return nil, lockErr
			}
			return func() error { released++; return nil }, nil
		}}, quietLogger())

	_, err := p.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	_, err = p.Apply(context.Background())
	require.ErrorIs(t, err, lockErr)
	assert.Equal(t, 1, released)
}

func TestPipeline_ConvertThenApplyEndToEnd(t *testing.T) {
	store, fsys := newTestStore(t)
	c := testutil.NewScriptedCompleter(
		// convert
		testutil.Reply{Text: "CREATE FUNCTION a() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;"},
		testutil.Reply{Text: "```sql\nCREATE FUNCTION b() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;\n```"},
		testutil.Reply{Text: "CREATE FUNCTION c() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;"},
		// apply: b corrected once, c never fixed
		testutil.Reply{Text: "CREATE FUNCTION b_fixed() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;"},
		testutil.Reply{Text: "c1"},
		testutil.Reply{Text: "c2"},
		testutil.Reply{Text: "c3"},
	)
	exec := testutil.NewScriptedExecutor(
		nil,                  // a
		errors.New("b bad"),  // b
		nil,                  // b_fixed
		errors.New("c bad"),  // c
		errors.New("c1 bad"), // c1
		errors.New("c2 bad"), // c2
		errors.New("c3 bad"), // c3
	)
	log := &eventLog{}
	runs := &runLog{}
	src := staticSource{procs: []source.Procedure{
		{Name: "dbo.A", Definition: "SELECT 1"},
		{Name: "dbo.B", Definition: "SELECT 2"},
		{Name: "dbo.C", Definition: "SELECT 3"},
	}}
	p := NewPipeline(src,
		newTestConverter(c, store, log, ConvertOptions{}),
		newTestRepairer(exec, c, store, log),
		store, runs, PipelineOptions{}, quietLogger())

	conv, err := p.Convert(context.Background())
	require.NoError(t, err)
	assert.Zero(t, conv.Failed())

	applied, err := p.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-2", applied.RunID)
	assert.Equal(t, 1, applied.Count(Applied))
	assert.Equal(t, 1, applied.Count(AppliedWithCorrection))
	assert.Equal(t, 1, applied.Count(Declined))
	assert.Equal(t, RunSucceeded, runs.statuses["run-2"])

	assert.True(t, exists(t, fsys, "accept", "dbo.A.sql"))
	assert.Equal(t, "CREATE FUNCTION b_fixed() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;",
		readFile(t, fsys, "acceptWithGpt", "dbo.B.sql"))
	assert.Equal(t, "CREATE FUNCTION c() RETURNS void AS $$ BEGIN END $$ LANGUAGE plpgsql;",
		readFile(t, fsys, "decline", "dbo.C.sql"))
	assert.Equal(t, 7, c.Calls())
}
