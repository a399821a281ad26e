package record

import (
	"sync"

	"github.com/google/uuid"
)

// IDPrefix marks identifiers minted for pending writes.
const IDPrefix = "off_"

// IDGenerator mints pending write identifiers.
// Implemented by UUIDv7Generator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator mints "off_<uuidv7>" identifiers. UUIDv7 carries a
// millisecond timestamp followed by random bits, so identifiers sort by
// creation time and do not collide across processes.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return IDPrefix + uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined identifiers in order.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate panics once all identifiers have been handed out, so a test that
// queues more writes than it planned for fails loudly.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
