// Package registry holds the ordered list of active upload tasks, the only
// state shared between concurrently running upload loops.
//
// Writers are serialized. Every write starts from the most recently
// published list, replaces or removes exactly one entry in a fresh copy and
// publishes the copy as a whole, so a write for one task can never revert
// or reorder another task's entry. Readers get the latest published
// snapshot without locking.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/dsuploader/internal/client/models"
	"github.com/dmitrijs2005/dsuploader/internal/common"
)

// PublishFunc receives every published list. It runs while the writer
// lock is held, so it must not call back into the registry's write methods.
type PublishFunc func(tasks []models.UploadTask)

type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[[]models.UploadTask]
	publish PublishFunc
}

// New returns an empty registry. publish may be nil.
func New(publish PublishFunc) *Registry {
	r := &Registry{publish: publish}
	empty := []models.UploadTask{}
	r.current.Store(&empty)
	return r
}

func (r *Registry) latest() []models.UploadTask {
	return *r.current.Load()
}

// commit must be called with r.mu held.
func (r *Registry) commit(next []models.UploadTask) {
	r.current.Store(&next)
	if r.publish != nil {
		r.publish(clone(next))
	}
}

func clone(tasks []models.UploadTask) []models.UploadTask {
	out := make([]models.UploadTask, len(tasks))
	copy(out, tasks)
	return out
}

func indexOf(tasks []models.UploadTask, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Create inserts task at the front of the list. It fails with
// common.ErrTaskExists when a task with the same id is active.
func (r *Registry) Create(task models.UploadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.latest()
	if indexOf(cur, task.ID) >= 0 {
		return common.ErrTaskExists
	}

	next := make([]models.UploadTask, 0, len(cur)+1)
	next = append(next, task)
	next = append(next, cur...)
	r.commit(next)
	return nil
}

// Update applies patch to the latest entry for id and republishes the list.
// It reports false, without publishing, when id is not registered. The ID
// field cannot be changed by patch.
func (r *Registry) Update(id string, patch func(t *models.UploadTask)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.latest()
	i := indexOf(cur, id)
	if i < 0 {
		return false
	}

	next := clone(cur)
	patch(&next[i])
	next[i].ID = id
	r.commit(next)
	return true
}

// Remove drops the entry for id. It reports whether the entry existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.latest()
	i := indexOf(cur, id)
	if i < 0 {
		return false
	}

	next := make([]models.UploadTask, 0, len(cur)-1)
	next = append(next, cur[:i]...)
	next = append(next, cur[i+1:]...)
	r.commit(next)
	return true
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (models.UploadTask, bool) {
	cur := r.latest()
	if i := indexOf(cur, id); i >= 0 {
		return cur[i], true
	}
	return models.UploadTask{}, false
}

// List returns a copy of the latest published list, newest task first.
func (r *Registry) List() []models.UploadTask {
	return clone(r.latest())
}

// Len returns the number of active tasks.
func (r *Registry) Len() int {
	return len(r.latest())
}
