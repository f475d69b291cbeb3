package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator produces deterministic booking identifiers.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator yields "<prefix>-1", "<prefix>-2", ...; an empty prefix
// becomes "booking".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "booking"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next for injection into service.Options.
func (g *IDGenerator) NextFunc() func() string {
	return g.Next
}
