// Package duckdb persists annotation matrix runs in DuckDB.
// Each run stores its row labels, column labels and non-zero cells so that
// matrices can be reloaded or queried by SNP and pathway.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for annotation runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP,
			kind VARCHAR,
			mode VARCHAR,
			n_rows BIGINT,
			n_cols BIGINT,
			nnz BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS run_inputs (
			run_id VARCHAR,
			role VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS run_rows (
			run_id VARCHAR,
			row_idx BIGINT,
			snp VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS run_cols (
			run_id VARCHAR,
			col_idx BIGINT,
			name VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS run_cells (
			run_id VARCHAR,
			row_idx BIGINT,
			col_idx BIGINT,
			value BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// withAppender bulk-inserts into table using the DuckDB Appender API.
func (s *Store) withAppender(ctx context.Context, table string, fn func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create %s appender: %w", table, err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}
