package lease

import (
	"context"
	"sync"
	"time"
)

// MemoryService keeps leases in process memory.
type MemoryService struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewMemoryService returns an empty in-process lease table.
func NewMemoryService() *MemoryService {
	return &MemoryService{leases: make(map[string]time.Time)}
}

func (m *MemoryService) Read(ctx context.Context, key string) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.leases[key]
	return ts, ok, nil
}

func (m *MemoryService) CreateIfAbsent(ctx context.Context, key string, ts time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leases[key]; ok {
		return false, nil
	}
	m.leases[key] = ts
	return true, nil
}

func (m *MemoryService) Overwrite(ctx context.Context, key string, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[key] = ts
	return nil
}

// Len reports how many keys have been leased.
func (m *MemoryService) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leases)
}
