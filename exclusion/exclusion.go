// Package exclusion provides mutual-exclusion scopes for rendering engines that are not safe for concurrent use.
package exclusion

import (
	"context"
	"strings"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
	"golang.org/x/sync/semaphore"
)

// Scope guarantees at most one holder at a time. It is not reentrant and has no timeout:
// Acquire waits until the scope is free or ctx is done.
type Scope interface {
	Acquire(ctx context.Context) errorsx.Error
	Release()
}

var (
	_ Scope = &ProcessScope{}
	_ Scope = &FileScope{}
)

// ProcessScope serialises holders within this process
type ProcessScope struct {
	name string
	sem  *semaphore.Weighted
}

func NewProcessScope(name string) *ProcessScope {
	return &ProcessScope{name, semaphore.NewWeighted(1)}
}

func (s *ProcessScope) Name() string {
	return s.name
}

func (s *ProcessScope) Acquire(ctx context.Context) errorsx.Error {
	err := s.sem.Acquire(ctx, 1)
	if err != nil {
		return errorsx.Wrap(err, "scope", s.name)
	}
	return nil
}

func (s *ProcessScope) Release() {
	s.sem.Release(1)
}

const (
	processPrefix = "process:"
	filePrefix    = "file:"
)

// Registry hands out one shared scope per resource, so that every source naming the same resource is serialised together.
type Registry struct {
	mu     sync.Mutex
	scopes map[string]Scope
}

func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]Scope)}
}

// Get parses a lock name and returns the shared scope for it.
// Names are "process:<name>" or "file:<lock file path>". An empty name or "none" returns nil (no exclusion).
func (r *Registry) Get(lockName string) (Scope, errorsx.Error) {
	lockName = strings.TrimSpace(lockName)
	if lockName == "" || lockName == "none" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	scope, ok := r.scopes[lockName]
	if ok {
		return scope, nil
	}

	switch {
	case strings.HasPrefix(lockName, processPrefix):
		name := strings.TrimPrefix(lockName, processPrefix)
		if name == "" {
			return nil, errorsx.Errorf("no name given in exclusion scope %q", lockName)
		}
		scope = NewProcessScope(name)
	case strings.HasPrefix(lockName, filePrefix):
		path := strings.TrimPrefix(lockName, filePrefix)
		if path == "" {
			return nil, errorsx.Errorf("no lock file path given in exclusion scope %q", lockName)
		}
		scope = NewFileScope(path)
	default:
		return nil, errorsx.Errorf("unknown exclusion scope %q. Expected %q or %q", lockName, processPrefix+"<name>", filePrefix+"<path>")
	}

	r.scopes[lockName] = scope

	return scope, nil
}
