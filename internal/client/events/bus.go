// Package events is the uploader's boundary with the rest of the
// application: a set of typed publish/subscribe topics, one per
// notification, owned by whoever wires the coordinator.
package events

import (
	"sync"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
)

// Status values carried by DatasetStatus.
const StatusUploading = "uploading"

// DatasetUpdate tells collaborators that a dataset's authoritative state
// should be refetched. Sent on every terminal task transition; Err is nil
// on completion.
type DatasetUpdate struct {
	DatasetID string
	State     models.State
	Err       error
}

// DatasetStatus is an optimistic early signal that an upload has begun.
type DatasetStatus struct {
	DatasetID string
	Status    string
}

// Popover is a visibility hint for the task list. Not state-bearing.
type Popover struct {
	Visible bool
}

// Bus groups the topics of the upload subsystem.
type Bus struct {
	// UploadRequested is consumed by the coordinator.
	UploadRequested Topic[models.UploadRequest]

	DatasetUpdated       Topic[DatasetUpdate]
	DatasetStatusChanged Topic[DatasetStatus]
	TaskPopover          Topic[Popover]

	// TasksChanged carries every registry publication, newest task first.
	TasksChanged Topic[[]models.UploadTask]
}

func NewBus() *Bus {
	return &Bus{}
}

// Topic is a synchronous publish/subscribe channel for one payload type.
// The zero value is ready to use.
type Topic[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it. Handlers
// run on the publisher's goroutine in subscription order and must not block.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	subs := t.subs
	t.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len reports the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
