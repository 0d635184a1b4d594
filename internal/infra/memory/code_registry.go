package memory

import (
	"context"
	"sync"
)

// CodeRegistry reserves session codes within one process.
type CodeRegistry struct {
	mu    sync.Mutex
	codes map[string]struct{}
}

func NewCodeRegistry() *CodeRegistry {
	return &CodeRegistry{codes: make(map[string]struct{})}
}

func (r *CodeRegistry) Reserve(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.codes[code]; taken {
		return false, nil
	}
	r.codes[code] = struct{}{}
	return true, nil
}

func (r *CodeRegistry) Release(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, code)
	return nil
}
