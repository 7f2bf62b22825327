// Package models defines the client-side data types of the uploader.
package models

import "time"

// State is a step of an upload task's lifecycle.
type State string

const (
	StateCreated      State = "created"
	StateNegotiating  State = "negotiating"
	StateTransmitting State = "transmitting"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateFailed       State = "failed"
)

// Terminal reports whether s ends the task. Terminal tasks are never
// present in the task registry.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// MaxActivePercent is the highest percent a task reports while it is still
// registered. 100% is implied by the task's removal on success.
const MaxActivePercent = 99.99

// UploadTask is the published view of one upload in progress for one
// dataset. Values are snapshots; mutate through the registry only.
type UploadTask struct {
	// ID is the dataset id and the registry key.
	ID        string
	Title     string
	Percent   float64
	SessionID string
	Cancelled bool
	State     State

	BytesLoaded int64
	BytesTotal  int64
	CreatedAt   time.Time
}

// Dataset identifies the upload target.
type Dataset struct {
	ID    string
	Title string
}

// UploadRequest asks for the given files to be uploaded into a dataset.
type UploadRequest struct {
	Dataset Dataset
	Files   []FileDescriptor
}

// HistoryFile is a journaled file of a task run.
type HistoryFile struct {
	FileNo      int
	Name        string
	Size        int64
	TotalChunks int
}

// HistoryRecord is a journaled task run.
type HistoryRecord struct {
	RunID      string
	DatasetID  string
	Title      string
	SessionID  string
	State      State
	BytesTotal int64
	BytesSent  int64
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      []HistoryFile
}
