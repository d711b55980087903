// Package store persists generated cities in SQLite or PostgreSQL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store wraps the database connection and provides persistence operations.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig connects to the database selected by cfg.Driver and
// creates the schema if needed.
func OpenWithConfig(cfg Config) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialect.(*PostgresDialect); ok {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	} else {
		// PRAGMAs apply to a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	pk := s.dialect.SerialPrimaryKey()
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id ` + pk + `,
			uuid TEXT UNIQUE NOT NULL,
			digest TEXT NOT NULL,
			seed BIGINT NOT NULL,
			width DOUBLE PRECISION NOT NULL,
			depth DOUBLE PRECISION NOT NULL,
			streets INTEGER NOT NULL DEFAULT 0,
			blocks INTEGER NOT NULL DEFAULT 0,
			parcels INTEGER NOT NULL DEFAULT 0,
			dropped INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS streets (
			id ` + pk + `,
			run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			major INTEGER NOT NULL DEFAULT 0,
			closed INTEGER NOT NULL DEFAULT 0,
			geometry TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS parcels (
			id ` + pk + `,
			run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			block INTEGER NOT NULL,
			height DOUBLE PRECISION NOT NULL,
			geometry TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest)`,
		`CREATE INDEX IF NOT EXISTS idx_streets_run_id ON streets(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_run_id ON parcels(run_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the connection.
func (s *Store) Dialect() Dialect {
	return s.dialect
}
