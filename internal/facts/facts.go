// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package facts persists the subject-predicate-object facts produced by
// extraction and answers queries over them.
package facts

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// ErrUnknownBackend is returned by Open for an unsupported store backend.
var ErrUnknownBackend = errors.New("unknown fact store backend")

// Sink is the append-only destination of facts. Emitted facts need not be
// durable until Flush returns.
type Sink interface {
	Emit(ctx context.Context, f types.Fact) error
	Flush(ctx context.Context) error
}

// Store is a queryable fact sink that also records which extraction
// operations have committed their facts in the current session.
type Store interface {
	Sink

	// Commit writes the facts of one operation and marks the operation
	// completed. Either all facts are written or none are.
	Commit(ctx context.Context, operation string, facts []types.Fact) error

	// Completed reports whether operation has committed in this session.
	Completed(ctx context.Context, operation string) (bool, error)

	// Retrieve returns facts matching opts in emission order.
	Retrieve(ctx context.Context, opts QueryOptions) ([]types.Fact, error)

	// Reset removes all facts and completion records, starting a new
	// session.
	Reset(ctx context.Context) error

	Close() error
}

// QueryOptions holds parameters for fact queries. Empty fields match
// everything.
type QueryOptions struct {
	Subject   string
	Predicate string
	Object    string
	Operation string

	// Contains matches facts whose subject or object contains the string.
	Contains string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Subject == "" && q.Predicate == "" && q.Object == "" &&
		q.Operation == "" && q.Contains == ""
}

const (
	defaultMaxResults = 50
	exportLimit       = 1000000
)

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg types.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case types.StoreMemory:
		return NewMemoryStore(cfg.MaxResults), nil
	case types.StoreSQLite, "":
		return NewSQLiteStore(cfg)
	case types.StorePostgres:
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Backend, ErrUnknownBackend)
	}
}

// Batch stages the facts of one operation attempt. Facts staged by a
// failed attempt are discarded with the batch, so each fact reaches the
// store at most once.
type Batch struct {
	operation string
	facts     []types.Fact
	seen      map[types.Fact]struct{}
}

// NewBatch returns an empty batch for operation.
func NewBatch(operation string) *Batch {
	return &Batch{operation: operation, seen: map[types.Fact]struct{}{}}
}

// Operation returns the name the batch stages facts for.
func (b *Batch) Operation() string {
	return b.operation
}

// Add stages f, tagged with the batch's operation. Duplicates are dropped.
func (b *Batch) Add(f types.Fact) {
	f.Operation = b.operation
	if _, ok := b.seen[f]; ok {
		return
	}
	b.seen[f] = struct{}{}
	b.facts = append(b.facts, f)
}

// Facts returns the staged facts in the order they were added.
func (b *Batch) Facts() []types.Fact {
	return b.facts
}

// Len returns the number of staged facts.
func (b *Batch) Len() int {
	return len(b.facts)
}

func matches(f types.Fact, q QueryOptions) bool {
	if q.Subject != "" && f.Subject != q.Subject {
		return false
	}
	if q.Predicate != "" && f.Predicate != q.Predicate {
		return false
	}
	if q.Object != "" && f.Object != q.Object {
		return false
	}
	if q.Operation != "" && f.Operation != q.Operation {
		return false
	}
	if q.Contains != "" && !containsFold(f.Subject, q.Contains) && !containsFold(f.Object, q.Contains) {
		return false
	}
	return true
}
