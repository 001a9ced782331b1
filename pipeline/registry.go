package pipeline

import (
	"sync"
	"time"
)

// Listener observes run state mutations. Listeners are called synchronously
// after each mutation and must not block; hand the state to a channel or
// queue if delivery is slow.
type Listener func(RunState)

type runEntry struct {
	state RunState
	runID string // token of the run allowed to mutate this slot
}

// Registry is the process-wide container for run state. A run keeps
// executing and mutating its slot whether or not anything observes it; a
// view that navigated away re-attaches by reading Snapshot and subscribing.
// One slot per project id; a new run for the same project supersedes the old
// one, and the superseded run's late writes are dropped.
type Registry struct {
	mu        sync.RWMutex
	runs      map[string]*runEntry
	listeners map[int]Listener
	nextID    int
}

func NewRegistry() *Registry {
	return &Registry{
		runs:      make(map[string]*runEntry),
		listeners: make(map[int]Listener),
	}
}

// Register installs a fresh run state for a project under the given run
// token, superseding any previous run for that project.
func (r *Registry) Register(state RunState, runID string) {
	r.mu.Lock()
	r.runs[state.ProjectID] = &runEntry{state: state, runID: runID}
	snapshot := state.Clone()
	listeners := r.currentListeners()
	r.mu.Unlock()
	notify(listeners, snapshot)
}

// Update applies mutate to the run slot for projectID, provided runID still
// owns the slot. Listeners see the mutated state.
func (r *Registry) Update(projectID, runID string, mutate func(*RunState)) {
	r.mu.Lock()
	entry, ok := r.runs[projectID]
	if !ok || entry.runID != runID {
		r.mu.Unlock()
		return
	}
	mutate(&entry.state)
	entry.state.UpdatedAt = time.Now()
	snapshot := entry.state.Clone()
	listeners := r.currentListeners()
	r.mu.Unlock()
	notify(listeners, snapshot)
}

// Snapshot returns a copy of the current run state for a project. The second
// return is false when no run was ever registered (or it was cleared).
func (r *Registry) Snapshot(projectID string) (RunState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[projectID]
	if !ok {
		return RunState{}, false
	}
	return entry.state.Clone(), true
}

// Owns reports whether runID is still the active run for projectID.
func (r *Registry) Owns(projectID, runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[projectID]
	return ok && entry.runID == runID
}

// Clear drops the run slot for a project.
func (r *Registry) Clear(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, projectID)
}

// Subscribe registers a listener for every subsequent mutation, across all
// projects. The returned cancel func detaches it; the runs themselves are
// unaffected by attach/detach.
func (r *Registry) Subscribe(fn Listener) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Registry) currentListeners() []Listener {
	out := make([]Listener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []Listener, state RunState) {
	for _, fn := range listeners {
		fn(state)
	}
}
