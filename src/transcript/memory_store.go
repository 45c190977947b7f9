package transcript

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It is the default backend
// and the one the tests use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

func (ms *MemoryStore) Record(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.records[rec.SessionID] = append(ms.records[rec.SessionID], rec)
	return nil
}

// List returns the most recent records for a session, newest first.
func (ms *MemoryStore) List(_ context.Context, sessionID string, limit int) ([]Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stored := ms.records[sessionID]
	if limit <= 0 || limit > len(stored) {
		limit = len(stored)
	}
	out := make([]Record, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (ms *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
