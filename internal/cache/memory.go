package cache

import (
	"container/list"
	"context"
	"sort"
	"sync"
)

type memoryKey struct {
	partition string
	key       string
}

// lruEntry links the cache key and the entry to the list element.
type lruEntry struct {
	key   memoryKey
	size  int64
	value *Entry
}

// MemoryStore implements Store with a hard memory limit and LRU eviction
// shared across partitions. Pinned keys are skipped by eviction, so the limit
// can be exceeded when only pinned entries remain. Nothing survives a restart.
type MemoryStore struct {
	mu sync.Mutex
	// front is most recently used
	lru      *list.List
	entries  map[memoryKey]*list.Element
	pinned   map[memoryKey]struct{}
	maxBytes int64
	curBytes int64
}

// NewMemoryStore creates a MemoryStore limited to maxMB megabytes.
// maxMB <= 0 disables the limit.
func NewMemoryStore(maxMB int) *MemoryStore {
	return &MemoryStore{
		lru:      list.New(),
		entries:  make(map[memoryKey]*list.Element),
		pinned:   make(map[memoryKey]struct{}),
		maxBytes: int64(maxMB) * 1024 * 1024,
	}
}

// Get retrieves an entry and marks it most recently used.
func (m *MemoryStore) Get(_ context.Context, partition, key string) (*Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[memoryKey{partition, key}]
	if !ok {
		return nil, false, nil
	}
	m.lru.MoveToFront(el)
	return el.Value.(*lruEntry).value, true, nil
}

// Put adds or replaces an entry, evicting least recently used entries while
// over the limit.
func (m *MemoryStore) Put(_ context.Context, partition, key string, entry *Entry) error {
	size := entry.Size()
	k := memoryKey{partition, key}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[k]; ok {
		old := el.Value.(*lruEntry)
		m.curBytes += size - old.size
		old.size = size
		old.value = entry
		m.lru.MoveToFront(el)
	} else {
		el := m.lru.PushFront(&lruEntry{key: k, size: size, value: entry})
		m.entries[k] = el
		m.curBytes += size
	}

	m.evict()
	return nil
}

// Pin exempts key in partition from eviction. The key need not be stored yet.
func (m *MemoryStore) Pin(partition, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[memoryKey{partition, key}] = struct{}{}
}

// evict must be called with mu held.
func (m *MemoryStore) evict() {
	for el := m.lru.Back(); el != nil && m.maxBytes > 0 && m.curBytes > m.maxBytes; {
		prev := el.Prev()
		if _, ok := m.pinned[el.Value.(*lruEntry).key]; !ok {
			m.removeElement(el)
		}
		el = prev
	}
}

// Partitions lists partitions in name order.
func (m *MemoryStore) Partitions(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for k := range m.entries {
		seen[k.partition] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DropPartition removes every entry in partition.
func (m *MemoryStore) DropPartition(_ context.Context, partition string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, el := range m.entries {
		if k.partition == partition {
			m.removeElement(el)
		}
	}
	for k := range m.pinned {
		if k.partition == partition {
			delete(m.pinned, k)
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close is a no-op for in-memory, but required by the interface.
func (m *MemoryStore) Close() error {
	return nil
}

// removeElement must be called with mu held.
func (m *MemoryStore) removeElement(el *list.Element) {
	evicted := m.lru.Remove(el).(*lruEntry)
	delete(m.entries, evicted.key)
	m.curBytes -= evicted.size
}
