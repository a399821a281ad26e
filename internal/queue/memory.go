package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/landsync/internal/record"
)

// MemoryBackend is a Backend that keeps writes in a slice. Nothing survives
// a restart.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryBackend struct {
	mu      sync.Mutex
	writes  []record.PendingWrite
	nextSeq int64
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		writes: make([]record.PendingWrite, 0, 16),
	}
}

func (m *MemoryBackend) InsertPendingWrite(_ context.Context, w record.PendingWrite) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.writes {
		if existing.ID == w.ID {
			return existing.Seq, false, nil
		}
	}
	m.nextSeq++
	w = w.Clone()
	w.Seq = m.nextSeq
	m.writes = append(m.writes, w)
	return w.Seq, true, nil
}

func (m *MemoryBackend) ListPendingWrites(_ context.Context) ([]record.PendingWrite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]record.PendingWrite, 0, len(m.writes))
	for _, w := range m.writes {
		out = append(out, w.Clone())
	}
	return out, nil
}

func (m *MemoryBackend) ReadPendingWrite(_ context.Context, id string) (record.PendingWrite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writes {
		if w.ID == id {
			return w.Clone(), nil
		}
	}
	return record.PendingWrite{}, fmt.Errorf("read pending write %s: %w", id, record.ErrNotFound)
}

func (m *MemoryBackend) DeletePendingWrite(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeWhere(func(w record.PendingWrite) bool { return w.ID == id })
	return nil
}

func (m *MemoryBackend) DeletePendingWritesByKey(_ context.Context, businessKey string) (int64, error) {
	if businessKey == "" {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removeWhere(func(w record.PendingWrite) bool { return w.BusinessKey == businessKey }), nil
}

func (m *MemoryBackend) PurgePendingWrites(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.writes))
	m.writes = m.writes[:0]
	return n, nil
}

func (m *MemoryBackend) CountPendingWrites(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes), nil
}

// removeWhere must be called with mu held.
func (m *MemoryBackend) removeWhere(match func(record.PendingWrite) bool) int64 {
	kept := m.writes[:0]
	var removed int64
	for _, w := range m.writes {
		if match(w) {
			removed++
			continue
		}
		kept = append(kept, w)
	}
	m.writes = kept
	return removed
}
