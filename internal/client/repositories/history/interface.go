package history

import (
	"context"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
)

type Repository interface {
	// Begin stores a new run together with its files.
	Begin(ctx context.Context, rec models.HistoryRecord) error
	SetSession(ctx context.Context, runID, sessionID string) error
	// Finish records the terminal state of a run.
	Finish(ctx context.Context, runID string, state models.State, bytesSent int64, errText string) error
	// List returns up to limit runs, most recently started first. A
	// non-positive limit returns all runs.
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}
