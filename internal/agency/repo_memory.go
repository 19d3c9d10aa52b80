package agency

import (
	"context"
	"sync"
)

// MemoryDirectory is an in-memory Directory for tests and local runs.
type MemoryDirectory struct {
	mu    sync.RWMutex
	byKey map[string]Agency
}

func NewMemoryDirectory(agencies ...Agency) *MemoryDirectory {
	d := &MemoryDirectory{byKey: map[string]Agency{}}
	for _, a := range agencies {
		d.Put(a)
	}
	return d
}

func (d *MemoryDirectory) Put(a Agency) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byKey[a.IngestKey] = a
}

func (d *MemoryDirectory) ByIngestKey(ctx context.Context, key string) (Agency, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byKey[key]
	if !ok {
		return Agency{}, ErrNotFound
	}
	return a, nil
}
