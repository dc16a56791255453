package mocks

import (
	"strconv"
	"sync"

	"github.com/mcoot/geoguess/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued tokens are returned first; afterwards Token returns prefix plus an
// increasing counter so tokens stay unique.
type MockRandom struct {
	mu      sync.Mutex
	tokens  []string
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued token, or a counter-based one
func (r *MockRandom) Token(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) > 0 {
		token := r.tokens[0]
		r.tokens = r.tokens[1:]
		return token
	}
	r.counter++
	return prefix + strconv.Itoa(r.counter)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, values...)
}
