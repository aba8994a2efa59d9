package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a task id is not in the registry.
var ErrNotFound = errors.New("task not found")

// DefaultMaxTasks bounds how many records the registry retains before
// evicting finished ones.
const DefaultMaxTasks = 512

// Registry holds all task records for the lifetime of the process.
// Records for finished tasks are evicted oldest-first once the registry
// grows past its cap; running tasks are never evicted.
type Registry struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	order    []string // insertion order, for eviction scans
	maxTasks int
}

// NewRegistry creates an empty registry with the default retention cap.
func NewRegistry() *Registry {
	return NewRegistryWithCap(DefaultMaxTasks)
}

// NewRegistryWithCap creates an empty registry retaining at most max records.
func NewRegistryWithCap(max int) *Registry {
	if max < 1 {
		max = 1
	}
	return &Registry{
		tasks:    make(map[string]*Task),
		maxTasks: max,
	}
}

// Create allocates a fresh task in the starting state and returns it.
func (r *Registry) Create(isPlaylist bool) *Task {
	t := &Task{
		ID:         uuid.New().String(),
		IsPlaylist: isPlaylist,
		CreatedAt:  time.Now(),
		status:     StatusStarting,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return t
}

// Get looks up a task by id.
func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Len returns the number of retained records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// evictLocked drops the oldest finished records until there is room for
// one more. Callers must hold the write lock.
func (r *Registry) evictLocked() {
	if len(r.tasks) < r.maxTasks {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		t, ok := r.tasks[id]
		if !ok {
			continue
		}
		if len(r.tasks) >= r.maxTasks && t.Status().IsTerminal() {
			delete(r.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
