// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package facts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// PostgresStore persists facts in a PostgreSQL database shared by several
// extraction hosts.
type PostgresStore struct {
	pool       *pgxpool.Pool
	maxResults int
}

// NewPostgresStore connects to cfg.PostgresDSN and creates the schema if it
// does not exist.
func NewPostgresStore(ctx context.Context, cfg types.StoreConfig) (*PostgresStore, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres backend requires a DSN")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	s := &PostgresStore{pool: pool, maxResults: maxResults}

	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cad_facts (
			id BIGSERIAL PRIMARY KEY,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			datatype TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL DEFAULT '',
			UNIQUE (subject, predicate, object, datatype)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cad_facts_subject ON cad_facts(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_cad_facts_operation ON cad_facts(operation)`,
		`CREATE TABLE IF NOT EXISTS cad_operations (
			name TEXT PRIMARY KEY,
			completed_at TIMESTAMPTZ NOT NULL,
			fact_count INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const pgInsertFact = `INSERT INTO cad_facts (subject, predicate, object, datatype, operation)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (subject, predicate, object, datatype) DO NOTHING`

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Emit inserts f unless an identical fact is already stored.
func (s *PostgresStore) Emit(ctx context.Context, f types.Fact) error {
	if _, err := s.pool.Exec(ctx, pgInsertFact,
		f.Subject, f.Predicate, f.Object, string(f.Datatype), f.Operation,
	); err != nil {
		return fmt.Errorf("inserting fact: %w", err)
	}
	return nil
}

// Flush is a no-op; every statement is durable on return.
func (s *PostgresStore) Flush(context.Context) error {
	return nil
}

// Commit implements Store in a single transaction, sending the inserts as
// one batch.
func (s *PostgresStore) Commit(ctx context.Context, operation string, facts []types.Fact) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range facts {
		batch.Queue(pgInsertFact, f.Subject, f.Predicate, f.Object, string(f.Datatype), f.Operation)
	}
	batch.Queue(
		`INSERT INTO cad_operations (name, completed_at, fact_count) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET
			completed_at = EXCLUDED.completed_at, fact_count = EXCLUDED.fact_count`,
		operation, time.Now().UTC(), len(facts),
	)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing facts for %s: %w", operation, err)
	}
	return tx.Commit(ctx)
}

// Completed implements Store.
func (s *PostgresStore) Completed(ctx context.Context, operation string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM cad_operations WHERE name = $1)`, operation,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("looking up operation: %w", err)
	}
	return exists, nil
}

// Retrieve implements Store. Results are in insertion order.
func (s *PostgresStore) Retrieve(ctx context.Context, opts QueryOptions) ([]types.Fact, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	qb.WriteString(`SELECT subject, predicate, object, datatype, operation FROM cad_facts WHERE TRUE`)
	if opts.Subject != "" {
		qb.WriteString(` AND subject = ` + arg(opts.Subject))
	}
	if opts.Predicate != "" {
		qb.WriteString(` AND predicate = ` + arg(opts.Predicate))
	}
	if opts.Object != "" {
		qb.WriteString(` AND object = ` + arg(opts.Object))
	}
	if opts.Operation != "" {
		qb.WriteString(` AND operation = ` + arg(opts.Operation))
	}
	if opts.Contains != "" {
		p := arg("%" + opts.Contains + "%")
		qb.WriteString(` AND (subject ILIKE ` + p + ` OR object ILIKE ` + p + `)`)
	}
	qb.WriteString(` ORDER BY id LIMIT ` + arg(maxResults))

	rows, err := s.pool.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying facts: %w", err)
	}
	defer rows.Close()

	var results []types.Fact
	for rows.Next() {
		var (
			f        types.Fact
			datatype string
		)
		if err := rows.Scan(&f.Subject, &f.Predicate, &f.Object, &datatype, &f.Operation); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		f.Datatype = types.Datatype(datatype)
		results = append(results, f)
	}
	return results, rows.Err()
}

// Reset implements Store.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE cad_facts, cad_operations`); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	return nil
}
