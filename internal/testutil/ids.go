package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates predictable run IDs for tests.
//
// This enables deterministic history records: the same sequence of runs
// with a fresh SequentialIDGenerator stores byte-identical rows.
//
// Implements store.IDGenerator. Thread-safety: safe for concurrent use via
// internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator producing prefix-0001,
// prefix-0002, ...
//
// If prefix is empty, "test-run" is used.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
