// Package runtime dispatches a claimed job to the handler responsible
// for its job type and runs it to completion (spec §4.6).
package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
)

// Handler is the contract every job type implements. Run mutates job in
// place (Status/Results) to reflect a terminal outcome and returns nil,
// or returns a job-class error (see joberr) for malformed input that the
// dispatcher converts into a failed commit itself. Any other error (for
// example the sandbox failing to start the child) aborts the dispatcher.
type Handler interface {
	Type() string
	Run(ctx context.Context, job *domain.Job, cfg *config.RunConfig) error
}

// Registry is a concurrency-safe job_type -> Handler map. At most one
// handler may be registered per job type; registration happens once at
// startup, lookups happen from every dispatcher goroutine.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

// Get returns the handler for jobType, or false if none is registered —
// the dispatcher treats a miss as joberr.InvalidJobType.
func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
