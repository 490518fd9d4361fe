// Package store wraps the embedded SQLite engine: connection pool,
// pragma enforcement, schema migrations, and every message/queue query
// the registry and lifecycle engine need. It is the one shared mutable
// resource in the process; writes are serialized by SQLite's own
// single-writer model plus the atomic UPDATE...RETURNING claim statement
// used by Lease.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/sqewdb/sqew/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store owns the *sql.DB connection pool and enforces the storage
// contract every component relies on: WAL journaling, synchronous=NORMAL,
// foreign keys ON, and a busy-timeout of at least 5s.
type Store struct {
	db *sql.DB
}

// Open connects to path, applies pragmas, and runs pending migrations.
func Open(path string, busyTimeoutMs int64) (*Store, error) {
	if busyTimeoutMs < config.MinBusyTimeoutMs {
		busyTimeoutMs = config.MinBusyTimeoutMs
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path, busyTimeoutMs)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows only one writer at a time; modernc.org/sqlite serializes
	// through the single *sql.DB connection pool when MaxOpenConns permits
	// concurrent readers. A single physical writer is still enforced by
	// SQLite itself, so we cap neither below what WAL mode needs.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("init migration runner: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations to run")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info().Msg("migrations applied successfully")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for components that need a raw
// ExecContext/QueryContext.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Optimize runs SQLite's own query-planner optimizer on a slow cadence.
// Advisory, never fatal.
func (s *Store) Optimize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA optimize;")
	return err
}

// Vacuum rebuilds the database file, backing the registry's compact().
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	return err
}

// IsBusy reports whether err is SQLite's "database is locked"/SQLITE_BUSY
// condition, which the engine surfaces distinctly so read-only callers can
// retry.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
