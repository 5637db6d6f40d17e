// Package store is the PostgreSQL-backed persistence layer for services,
// sessions and hits, plus the raw-SQL aggregate queries that back the
// analytics query engine.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is the PostgreSQL-backed implementation of the service/session/hit
// persistence contract.
type Store struct {
	db *sql.DB
}

// Open connects to databaseURL, applies pool sizing, and returns a Store.
// It does not run migrations; call Migrate explicitly at startup so the
// caller controls when schema changes happen relative to other services
// sharing the database.
func Open(databaseURL string, maxOpenConns, maxIdleConns int) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxOpenConns < 10 {
		maxOpenConns = 10
	}
	if maxIdleConns < 10 {
		maxIdleConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	return &Store{db: db}, nil
}

// DB exposes the underlying *sql.DB, e.g. for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate applies all pending embedded migrations.
func (s *Store) Migrate(ctx context.Context) error {
	sourceDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	dbDriver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
