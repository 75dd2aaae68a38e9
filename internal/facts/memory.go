// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package facts

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// MemoryStore keeps facts in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	facts      []types.Fact
	index      map[types.Fact]struct{}
	completed  map[string]bool
	maxResults int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(maxResults int) *MemoryStore {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &MemoryStore{
		index:      map[types.Fact]struct{}{},
		completed:  map[string]bool{},
		maxResults: maxResults,
	}
}

// Emit appends f unless an identical fact is already stored.
func (m *MemoryStore) Emit(_ context.Context, f types.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emit(f)
	return nil
}

// emit stores f once per subject, predicate, object and datatype.
func (m *MemoryStore) emit(f types.Fact) {
	key := f
	key.Operation = ""
	if _, ok := m.index[key]; ok {
		return
	}
	m.index[key] = struct{}{}
	m.facts = append(m.facts, f)
}

// Flush is a no-op.
func (m *MemoryStore) Flush(context.Context) error {
	return nil
}

// Commit implements Store.
func (m *MemoryStore) Commit(_ context.Context, operation string, facts []types.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range facts {
		m.emit(f)
	}
	m.completed[operation] = true
	return nil
}

// Completed implements Store.
func (m *MemoryStore) Completed(_ context.Context, operation string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completed[operation], nil
}

// Retrieve implements Store.
func (m *MemoryStore) Retrieve(_ context.Context, opts QueryOptions) ([]types.Fact, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = m.maxResults
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Fact
	for _, f := range m.facts {
		if len(out) >= limit {
			break
		}
		if matches(f, opts) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = nil
	m.index = map[types.Fact]struct{}{}
	m.completed = map[string]bool{}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored facts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.facts)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
