// Package registry implements the coordination pool's WorkerRegistry: the
// owner of every live worker record, the pool-size bound, and the views the
// dispatcher and isolation reporter scan.
//
// Registry is not safe for concurrent use on its own. Per the pool's
// concurrency model, every mutation and every read that must be consistent
// with a mutation happens inside the coordination facade's single critical
// section; Registry assumes its caller already holds that lock.
package registry

import (
	"errors"
	"sort"
	"time"

	"github.com/cuemby/coordpool/pkg/clock"
	"github.com/cuemby/coordpool/pkg/idgen"
	"github.com/cuemby/coordpool/pkg/types"
)

const (
	// DefaultPoolSize is how many workers initialize_pool spawns when the
	// caller does not request a specific size.
	DefaultPoolSize = 4
	// MaxPoolSize is the hard cap on live workers.
	MaxPoolSize = 16
)

// ErrPoolFull is returned when a spawn would push the registry over
// MaxPoolSize.
var ErrPoolFull = errors.New("registry: pool full")

// ErrUnknownWorker is returned when an operation names a worker id that is
// not currently live.
var ErrUnknownWorker = errors.New("registry: unknown worker")

// Registry owns the live worker set.
type Registry struct {
	workers map[string]*types.Worker
	order   []string // insertion order, for deterministic iteration
	ids     idgen.Generator
	clock   clock.Clock
}

// New creates an empty Registry.
func New(ids idgen.Generator, c clock.Clock) *Registry {
	return &Registry{
		workers: make(map[string]*types.Worker),
		ids:     ids,
		clock:   c,
	}
}

// Spawn creates one worker with a freshly minted isolation fingerprint.
// Returns ErrPoolFull at MaxPoolSize.
func (r *Registry) Spawn() (*types.Worker, error) {
	if len(r.workers) >= MaxPoolSize {
		return nil, ErrPoolFull
	}
	now := r.clock.Now()
	w := &types.Worker{
		ID:                r.ids.New(),
		State:             types.WorkerIdle,
		ContextID:         r.ids.New(),
		ToolSessionID:     r.ids.New(),
		MemoryHandleID:    r.ids.New(),
		History:           make(map[types.TaskType]*types.TaskHistory),
		CreatedAt:         now,
		LastStateChangeAt: now,
	}
	r.workers[w.ID] = w
	r.order = append(r.order, w.ID)
	return w, nil
}

// Len returns the number of live workers.
func (r *Registry) Len() int {
	return len(r.workers)
}

// WorkerByID returns the worker record, or ErrUnknownWorker.
func (r *Registry) WorkerByID(id string) (*types.Worker, error) {
	w, ok := r.workers[id]
	if !ok {
		return nil, ErrUnknownWorker
	}
	return w, nil
}

// AllWorkers returns every live worker in spawn order.
func (r *Registry) AllWorkers() []*types.Worker {
	out := make([]*types.Worker, 0, len(r.order))
	for _, id := range r.order {
		if w, ok := r.workers[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// IdleWorkers returns every worker currently in the idle state, in spawn
// order. The dispatcher does not rely on this order; it ranks candidates
// itself and breaks ties by lexical worker id.
func (r *Registry) IdleWorkers() []*types.Worker {
	var out []*types.Worker
	for _, id := range r.order {
		if w, ok := r.workers[id]; ok && w.IsIdle() {
			out = append(out, w)
		}
	}
	return out
}

// Retire removes a worker from the registry entirely. Used on shutdown and
// whenever a worker fault is reported.
func (r *Registry) Retire(id string) error {
	if _, ok := r.workers[id]; !ok {
		return ErrUnknownWorker
	}
	delete(r.workers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Transition moves a worker to a new state, stamping LastStateChangeAt.
func (r *Registry) Transition(id string, state types.WorkerState) error {
	w, ok := r.workers[id]
	if !ok {
		return ErrUnknownWorker
	}
	w.State = state
	w.LastStateChangeAt = r.clock.Now()
	return nil
}

// Assign marks a worker executing and holding taskID.
func (r *Registry) Assign(workerID, taskID string) error {
	w, ok := r.workers[workerID]
	if !ok {
		return ErrUnknownWorker
	}
	w.State = types.WorkerExecuting
	w.CurrentTaskID = taskID
	w.LastStateChangeAt = r.clock.Now()
	return nil
}

// Release clears a worker's current task and returns it to idle. If
// recordDuration is non-zero, it is folded into the worker's history for
// taskType.
func (r *Registry) Release(workerID string, taskType types.TaskType, recordDuration time.Duration) error {
	w, ok := r.workers[workerID]
	if !ok {
		return ErrUnknownWorker
	}
	w.CurrentTaskID = ""
	w.State = types.WorkerIdle
	w.LastStateChangeAt = r.clock.Now()
	if recordDuration > 0 {
		h, ok := w.History[taskType]
		if !ok {
			h = &types.TaskHistory{Type: taskType}
			w.History[taskType] = h
		}
		h.Update(recordDuration)
	}
	return nil
}

// SortedIDs returns every live worker id in lexical order, the same order
// the dispatcher's deterministic tie-break uses.
func (r *Registry) SortedIDs() []string {
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
