// Package postgres provides the PostgreSQL implementation of the store
// interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/droidwrap/droidwrap/internal/store"
)

// PostgresStore implements store.Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
	runs   *RunStore
	logs   *LogStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore opens the database, verifies the connection, and
// ensures the schema exists.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.runs = &RunStore{db: db, logger: logger}
	s.logs = &LogStore{db: db, logger: logger}
	return s, nil
}

// ensureSchema creates the run-history tables if they do not exist.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id                   TEXT PRIMARY KEY,
			session_id           TEXT NOT NULL,
			app_name             TEXT NOT NULL,
			package_name         TEXT NOT NULL,
			wrapper              TEXT NOT NULL,
			status               TEXT NOT NULL,
			report               TEXT NOT NULL DEFAULT '',
			output_path          TEXT NOT NULL DEFAULT '',
			encrypted_passphrase BYTEA,
			started_at           TIMESTAMPTZ NOT NULL,
			finished_at          TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS run_logs (
			id        TEXT PRIMARY KEY,
			run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq       INTEGER NOT NULL,
			level     TEXT NOT NULL,
			message   TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS run_logs_run_id_seq ON run_logs (run_id, seq);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Runs returns the RunStore.
func (s *PostgresStore) Runs() store.RunStore { return s.runs }

// Logs returns the LogStore.
func (s *PostgresStore) Logs() store.LogStore { return s.logs }

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
