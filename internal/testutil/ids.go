package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/landsync/internal/record"
)

// SequentialIDGenerator generates off_1, off_2, ... in call order.
//
// This enables deterministic test execution and golden snapshot comparison.
// Unlike record.FixedIDGenerator it never runs out.
//
// Thread-safety: safe for concurrent use.
type SequentialIDGenerator struct {
	mu sync.Mutex
	n  int
}

// NewSequentialIDGenerator creates a generator whose first ID is off_1.
func NewSequentialIDGenerator() *SequentialIDGenerator {
	return &SequentialIDGenerator{}
}

// Generate returns the next ID.
//
// Implements record.IDGenerator interface.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", record.IDPrefix, g.n)
}
