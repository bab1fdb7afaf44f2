package save

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory key space (dev/test use).
type MemoryRepo struct {
	mu     sync.RWMutex
	values map[Key]string
	writes int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{values: make(map[Key]string)}
}

func (r *MemoryRepo) Get(ctx context.Context, k Key) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[k]
	return v, ok, nil
}

func (r *MemoryRepo) Apply(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range b.Set {
		r.values[k] = v
	}
	for _, k := range b.Delete {
		delete(r.values, k)
	}
	r.writes++
	return nil
}

// Seed overwrites raw values, bypassing batching.
func (r *MemoryRepo) Seed(values map[Key]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = v
	}
}

// Writes counts applied batches.
func (r *MemoryRepo) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// Snapshot returns a copy of every stored value.
func (r *MemoryRepo) Snapshot() map[Key]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Key]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
