package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It is durable only for the life of
// the process and is used by tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	now    func() time.Time
	seq    int64
	deltas []Delta
}

// Compile-time check: *MemoryStore satisfies Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{now: clock}
}

func (m *MemoryStore) Save(_ context.Context, d Delta) (Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d = Prepare(d, m.now)
	m.seq++
	d.Seq = m.seq
	for i := range m.deltas {
		if m.deltas[i].ID == d.ID {
			m.deltas = append(m.deltas[:i], m.deltas[i+1:]...)
			break
		}
	}
	m.deltas = append(m.deltas, d)
	return d, nil
}

func (m *MemoryStore) Deltas(_ context.Context, entityIDs ...string) ([]Delta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := toSet(entityIDs)
	var out []Delta
	for _, d := range m.deltas {
		if want[d.EntityID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context, entityIDs ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := toSet(entityIDs)
	kept := m.deltas[:0]
	var n int64
	for _, d := range m.deltas {
		if drop[d.EntityID] {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.deltas = kept
	return n, nil
}

func (m *MemoryStore) HasDeltas(_ context.Context, entityID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.deltas {
		if d.EntityID == entityID {
			return true, nil
		}
	}
	return false, nil
}

// Prepare fills in the id and timestamp a store assigns on save.
func Prepare(d Delta, now func() time.Time) Delta {
	if d.ID == "" {
		d.ID = uuid.Must(uuid.NewV7()).String()
	}
	if d.At.IsZero() {
		d.At = now()
	}
	d.At = d.At.UTC()
	return d
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
