package chatkit

import "sync"

// Worker is a background job scoped to one logged-in session. Workers are
// torn down and recreated whenever the session resets.
type Worker interface {
	Start()
	Stop()
}

// WorkerBuilder constructs a fresh worker for the new session.
type WorkerBuilder func() Worker

// workerRegistry is the default WorkerFactory: it instantiates registered
// builders on CreateWorkers and stops everything on RemoveAllWorkers.
type workerRegistry struct {
	mu       sync.Mutex
	builders []WorkerBuilder
	active   []Worker
}

// NewWorkerRegistry builds a WorkerFactory from the given builders. Pass it
// through WithWorkerFactory to run session-scoped background jobs.
func NewWorkerRegistry(builders ...WorkerBuilder) WorkerFactory {
	return &workerRegistry{builders: builders}
}

func (r *workerRegistry) CreateWorkers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, build := range r.builders {
		w := build()
		w.Start()
		r.active = append(r.active, w)
	}
}

func (r *workerRegistry) RemoveAllWorkers() {
	r.mu.Lock()
	active := r.active
	r.active = nil
	r.mu.Unlock()
	for _, w := range active {
		w.Stop()
	}
}

func (r *workerRegistry) WorkerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
