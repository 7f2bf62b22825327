package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/common"
	"github.com/dmitrijs2005/dsuploader/internal/dbx"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Begin(ctx context.Context, rec models.HistoryRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = r.now()
	}

	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO upload_runs (run_id, dataset_id, title, session_id, state, bytes_total, bytes_sent, error, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.RunID, rec.DatasetID, rec.Title, rec.SessionID, string(rec.State), rec.BytesTotal, rec.BytesSent, rec.Error, rec.StartedAt.UnixNano())
		if err != nil {
			return err
		}

		for _, f := range rec.Files {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO upload_run_files (run_id, file_no, name, size, total_chunks)
				VALUES (?, ?, ?, ?, ?)
			`, rec.RunID, f.FileNo, f.Name, f.Size, f.TotalChunks)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to begin run %s: %w", rec.RunID, err)
	}
	return nil
}

func (r *SQLiteRepository) SetSession(ctx context.Context, runID, sessionID string) error {
	return r.updateOne(ctx, runID, `UPDATE upload_runs SET session_id = ? WHERE run_id = ?`, sessionID, runID)
}

func (r *SQLiteRepository) Finish(ctx context.Context, runID string, state models.State, bytesSent int64, errText string) error {
	return r.updateOne(ctx, runID, `
		UPDATE upload_runs SET state = ?, bytes_sent = ?, error = ?, finished_at = ?
		WHERE run_id = ?
	`, string(state), bytesSent, errText, r.now().UnixNano(), runID)
}

func (r *SQLiteRepository) updateOne(ctx context.Context, runID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
	}
	return nil
}

func scanRun(rows *sql.Rows) (models.HistoryRecord, error) {
	var (
		rec      models.HistoryRecord
		state    string
		started  int64
		finished sql.NullInt64
	)
	if err := rows.Scan(&rec.RunID, &rec.DatasetID, &rec.Title, &rec.SessionID, &state,
		&rec.BytesTotal, &rec.BytesSent, &rec.Error, &started, &finished); err != nil {
		return rec, err
	}
	rec.State = models.State(state)
	rec.StartedAt = time.Unix(0, started)
	if finished.Valid {
		t := time.Unix(0, finished.Int64)
		rec.FinishedAt = &t
	}
	return rec, nil
}

type runFile struct {
	runID string
	file  models.HistoryFile
}

func scanFile(rows *sql.Rows) (runFile, error) {
	var f runFile
	err := rows.Scan(&f.runID, &f.file.FileNo, &f.file.Name, &f.file.Size, &f.file.TotalChunks)
	return f, err
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	runs, err := dbx.Collect(ctx, r.db, scanRun, `
		SELECT run_id, dataset_id, title, session_id, state, bytes_total, bytes_sent, error, started_at, finished_at
		FROM upload_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	files, err := dbx.Collect(ctx, r.db, scanFile, `
		SELECT f.run_id, f.file_no, f.name, f.size, f.total_chunks
		FROM upload_run_files f
		JOIN (SELECT run_id FROM upload_runs ORDER BY started_at DESC, rowid DESC LIMIT ?) r ON r.run_id = f.run_id
		ORDER BY f.run_id, f.file_no
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	idx := make(map[string]int, len(runs))
	for i := range runs {
		idx[runs[i].RunID] = i
	}
	for _, f := range files {
		if i, ok := idx[f.runID]; ok {
			runs[i].Files = append(runs[i].Files, f.file)
		}
	}

	return runs, nil
}
