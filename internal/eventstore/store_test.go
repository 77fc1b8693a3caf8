package eventstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/report"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func finishedReport(id string, start time.Time) *report.BuildReport {
	rep := report.New(id, "build", "/src", []string{"pdf"})
	rep.Start = start
	rep.AddDocument("/src/paper.tex")
	rep.RecordToolRun("latex")
	rep.RecordToolRun("latex")
	rep.Warn(report.IssueRerunLimit, "/src/paper.tex", "limit")
	rep.Finish(nil)
	rep.End = start.Add(3 * time.Second)
	return rep
}

func TestAppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	e, err := NewDocumentProcessed("b1", "paper.tex", "pdf", 2, time.Second)
	require.NoError(t, err)
	e.EventMetadata = map[string]string{"key": "value"}
	require.NoError(t, store.Append(ctx, e))

	events, err := store.GetByBuildID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeDocumentProcessed, events[0].Type())
	assert.Equal(t, "value", events[0].Metadata()["key"])
	assert.JSONEq(t, `{"document":"paper.tex","target":"pdf","outputs":2,"duration_ms":1000}`, string(events[0].Payload()))
	assert.Positive(t, events[0].ID())

	none, err := store.GetByBuildID(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetRange(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	for i, id := range []string{"old", "mid", "new"} {
		rep := report.New(id, "build", "/src", nil)
		rep.Start = base.Add(time.Duration(i) * 10 * time.Minute)
		e, err := NewBuildStarted(rep)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.GetRange(ctx, base.Add(5*time.Minute), base.Add(25*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "mid", events[0].BuildID())
	assert.Equal(t, "new", events[1].BuildID())
}

func TestOpenFailureIsHistoryError(t *testing.T) {
	_, err := NewSQLiteStore(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatabaseOpenFailed) || errors.Is(err, ErrInitializeSchemaFailed))
}

func TestProjectionSummarizesBuilds(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	start := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	for i, id := range []string{"first", "second"} {
		rep := finishedReport(id, start.Add(time.Duration(i)*time.Minute))
		started, err := NewBuildStarted(rep)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, started))
		doc, err := NewDocumentProcessed(id, "paper.tex", "pdf", 1, time.Second)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, doc))
		finished, err := NewBuildFinished(rep)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, finished))
	}
	running := report.New("third", "graphics", "/src", nil)
	started, err := NewBuildStarted(running)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, started))

	p := NewHistoryProjection(store, 2)
	require.NoError(t, p.Rebuild(ctx))

	history := p.History()
	require.Len(t, history, 2)
	assert.Equal(t, "third", history[0].BuildID)
	assert.Equal(t, statusRunning, history[0].Status)
	assert.Equal(t, "second", history[1].BuildID)

	s, ok := p.Get("first")
	require.True(t, ok)
	assert.Equal(t, string(report.OutcomeWarning), s.Status)
	assert.Equal(t, "build", s.Command)
	assert.Equal(t, 1, s.Documents)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 2, s.ToolRuns["latex"])
	assert.Equal(t, 3*time.Second, s.Duration)
	assert.Equal(t, []string{"paper.tex:pdf"}, s.Processed)
	require.NotNil(t, s.CompletedAt)
}
