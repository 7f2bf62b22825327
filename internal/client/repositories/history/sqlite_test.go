package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/client/client"
	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*SQLiteRepository, *sql.DB, *time.Time) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	r := NewSQLiteRepository(db)
	r.now = func() time.Time { return clock }
	return r, db, &clock
}

func sampleRun(id, dataset string) models.HistoryRecord {
	return models.HistoryRecord{
		RunID:      id,
		DatasetID:  dataset,
		Title:      "Title " + dataset,
		State:      models.StateCreated,
		BytesTotal: 30,
		Files: []models.HistoryFile{
			{FileNo: 1, Name: "a.csv", Size: 10, TotalChunks: 1},
			{FileNo: 2, Name: "b.csv", Size: 20, TotalChunks: 2},
		},
	}
}

func TestBegin_StoresRunAndFiles(t *testing.T) {
	r, db, clock := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Begin(ctx, sampleRun("run-1", "ds-1")))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM upload_run_files WHERE run_id = ?`, "run-1").Scan(&n))
	assert.Equal(t, 2, n)

	runs, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "ds-1", got.DatasetID)
	assert.Equal(t, models.StateCreated, got.State)
	assert.True(t, got.StartedAt.Equal(*clock))
	assert.Nil(t, got.FinishedAt)
	assert.Equal(t, sampleRun("run-1", "ds-1").Files, got.Files)
}

func TestBegin_DuplicateRollsBackFiles(t *testing.T) {
	r, db, _ := setupRepo(t)
	ctx := context.Background()

	rec := sampleRun("run-1", "ds-1")
	rec.Files = append(rec.Files, models.HistoryFile{FileNo: 1, Name: "dup.csv"})

	require.Error(t, r.Begin(ctx, rec))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM upload_runs`).Scan(&n))
	assert.Equal(t, 0, n, "run row must be rolled back with its files")
}

func TestSetSessionAndFinish(t *testing.T) {
	r, _, clock := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Begin(ctx, sampleRun("run-1", "ds-1")))
	require.NoError(t, r.SetSession(ctx, "run-1", "sess-42"))

	*clock = clock.Add(5 * time.Second)
	require.NoError(t, r.Finish(ctx, "run-1", models.StateFailed, 10, "transfer failed"))

	runs, err := r.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "sess-42", got.SessionID)
	assert.Equal(t, models.StateFailed, got.State)
	assert.Equal(t, int64(10), got.BytesSent)
	assert.Equal(t, "transfer failed", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(*clock))
}

func TestUpdateUnknownRun(t *testing.T) {
	r, _, _ := setupRepo(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetSession(ctx, "nope", "s"), common.ErrNotFound)
	require.ErrorIs(t, r.Finish(ctx, "nope", models.StateCompleted, 0, ""), common.ErrNotFound)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	r, _, clock := setupRepo(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, r.Begin(ctx, sampleRun(id, "ds-"+id)))
		*clock = clock.Add(time.Second)
	}

	runs, err := r.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "run-2", runs[1].RunID)
	for _, run := range runs {
		assert.Len(t, run.Files, 2)
	}

	all, err := r.List(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestList_Empty(t *testing.T) {
	r, _, _ := setupRepo(t)

	runs, err := r.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
