// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package facts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/cadfacts/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "facts.db"
)

// SQLiteStore persists facts in factsDir/index/facts.db.
type SQLiteStore struct {
	db         *sql.DB
	factsDir   string
	maxResults int
}

// NewSQLiteStore opens or creates the fact database under cfg.FactsDir and
// creates the schema if it does not exist.
func NewSQLiteStore(cfg types.StoreConfig) (*SQLiteStore, error) {
	dbDir := filepath.Join(cfg.FactsDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &SQLiteStore{
		db:         db,
		factsDir:   cfg.FactsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dir returns the base directory of the store.
func (s *SQLiteStore) Dir() string {
	return s.factsDir
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS facts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			datatype TEXT NOT NULL DEFAULT '',
			operation TEXT,
			UNIQUE(subject, predicate, object, datatype)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_predicate ON facts(predicate)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_operation ON facts(operation)`,
		`CREATE TABLE IF NOT EXISTS operations (
			name TEXT PRIMARY KEY,
			completed_at TEXT NOT NULL,
			fact_count INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const sqliteInsertFact = `INSERT OR IGNORE INTO facts (subject, predicate, object, datatype, operation)
	VALUES (?, ?, ?, ?, ?)`

// Emit inserts f unless an identical fact is already stored.
func (s *SQLiteStore) Emit(ctx context.Context, f types.Fact) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertFact,
		f.Subject, f.Predicate, f.Object, string(f.Datatype), f.Operation)
	if err != nil {
		return fmt.Errorf("inserting fact: %w", err)
	}
	return nil
}

// Flush checkpoints the write-ahead log into the main database file.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing: %w", err)
	}
	return nil
}

// Commit implements Store in a single transaction.
func (s *SQLiteStore) Commit(ctx context.Context, operation string, facts []types.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsertFact)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx,
			f.Subject, f.Predicate, f.Object, string(f.Datatype), f.Operation,
		); err != nil {
			return fmt.Errorf("inserting fact %s %s: %w", f.Subject, f.Predicate, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO operations (name, completed_at, fact_count) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			completed_at=excluded.completed_at, fact_count=excluded.fact_count`,
		operation, time.Now().UTC().Format(time.RFC3339Nano), len(facts),
	)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}

	return tx.Commit()
}

// Completed implements Store.
func (s *SQLiteStore) Completed(ctx context.Context, operation string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM operations WHERE name = ?`, operation,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up operation: %w", err)
	}
	return n > 0, nil
}

// Retrieve implements Store. Results are in insertion order.
func (s *SQLiteStore) Retrieve(ctx context.Context, opts QueryOptions) ([]types.Fact, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT subject, predicate, object, datatype, COALESCE(operation, '')
		FROM facts WHERE 1=1`)

	if opts.Subject != "" {
		qb.WriteString(` AND subject = ?`)
		args = append(args, opts.Subject)
	}
	if opts.Predicate != "" {
		qb.WriteString(` AND predicate = ?`)
		args = append(args, opts.Predicate)
	}
	if opts.Object != "" {
		qb.WriteString(` AND object = ?`)
		args = append(args, opts.Object)
	}
	if opts.Operation != "" {
		qb.WriteString(` AND operation = ?`)
		args = append(args, opts.Operation)
	}
	if opts.Contains != "" {
		qb.WriteString(` AND (subject LIKE ? OR object LIKE ?)`)
		pattern := "%" + opts.Contains + "%"
		args = append(args, pattern, pattern)
	}

	qb.WriteString(` ORDER BY rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
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
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM facts`, `DELETE FROM operations`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
	}
	return tx.Commit()
}

// OperationSummary describes a committed operation.
type OperationSummary struct {
	Name        string    `json:"name" yaml:"name"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
	FactCount   int       `json:"fact_count" yaml:"fact_count"`
}

// Operations lists committed operations in completion order.
func (s *SQLiteStore) Operations(ctx context.Context) ([]OperationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, completed_at, fact_count FROM operations ORDER BY completed_at, name`)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()

	var out []OperationSummary
	for rows.Next() {
		var (
			op OperationSummary
			ts string
		)
		if err := rows.Scan(&op.Name, &ts, &op.FactCount); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		op.CompletedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, op)
	}
	return out, rows.Err()
}
