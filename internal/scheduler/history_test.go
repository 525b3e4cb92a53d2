package scheduler

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/pendoc/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "database", "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStore_RunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LastRun(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordRunStart(ctx, "run-1", 3, started))

	summary := models.ResultSummary{Total: 3, Succeeded: 2, Failed: 1}
	require.NoError(t, store.RecordRunFinish(ctx, "run-1", RunStatusCompleted, summary, started.Add(time.Minute), "out/report.html"))

	last, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, RunStatusCompleted, last.Status)
	assert.Equal(t, 2, last.Succeeded)
	assert.Equal(t, 1, last.Failed)
	assert.True(t, last.FinishedAt.Valid)
	assert.Equal(t, "out/report.html", last.ReportPath.String)

	assert.Error(t, store.RecordRunFinish(ctx, "missing", RunStatusCompleted, summary, time.Now(), ""))
}

func TestHistoryStore_RecordCapturedSkipsFailedAndResumed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	targets := makeTargets("a.example", "b.example", "c.example")
	succeeded := models.NewTargetResult(targets[0], models.StatusSucceeded)
	succeeded.Capture = &models.CaptureSuccess{ArtifactRef: "a.png", HTTPStatus: 200}
	failed := models.NewTargetResult(targets[1], models.StatusFailed)
	resumed := models.NewTargetResult(targets[2], models.StatusSucceeded)
	resumed.Capture = &models.CaptureSuccess{ArtifactRef: "c.png"}
	resumed.Resumed = true

	n, err := store.RecordCaptured(ctx, "run-1", []models.TargetResult{succeeded, failed, resumed})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// upsert on a second run
	n, err = store.RecordCaptured(ctx, "run-2", []models.TargetResult{succeeded})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := store.CapturedRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run-2", records[targets[0].Key()].RunID)
}

func TestHistoryStore_CapturedRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	target := makeTargets("a.example")[0]
	succeeded := models.NewTargetResult(target, models.StatusSucceeded)
	succeeded.Capture = &models.CaptureSuccess{ArtifactRef: "shots/a.png", HTTPStatus: 301}

	_, err := store.RecordCaptured(ctx, "run-1", []models.TargetResult{succeeded})
	require.NoError(t, err)

	records, err := store.CapturedRecords(ctx)
	require.NoError(t, err)
	require.Contains(t, records, target.Key())

	rec := records[target.Key()]
	assert.Equal(t, target.URL(), rec.URL)
	assert.Equal(t, "shots/a.png", rec.ArtifactRef)
	assert.Equal(t, 301, rec.HTTPStatus)
	assert.Equal(t, "run-1", rec.RunID)
	assert.False(t, rec.CapturedAt.IsZero())
}
