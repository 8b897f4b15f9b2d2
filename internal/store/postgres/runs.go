package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/store"
)

// RunStore implements store.RunStore using PostgreSQL.
type RunStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Create persists a finished run record.
func (s *RunStore) Create(ctx context.Context, run *models.BuildRun) error {
	query := `
		INSERT INTO runs (id, session_id, app_name, package_name, wrapper,
			status, report, output_path, encrypted_passphrase, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.SessionID,
		run.AppName,
		run.PackageName,
		string(run.Wrapper),
		string(run.Status),
		run.Report,
		run.OutputPath,
		run.EncryptedPassphrase,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*models.BuildRun, error) {
	query := `
		SELECT id, session_id, app_name, package_name, wrapper, status,
			report, output_path, encrypted_passphrase, started_at, finished_at
		FROM runs
		WHERE id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// List retrieves the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*models.BuildRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, session_id, app_name, package_name, wrapper, status,
			report, output_path, encrypted_passphrase, started_at, finished_at
		FROM runs
		ORDER BY finished_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []*models.BuildRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.BuildRun, error) {
	var run models.BuildRun
	var wrapper, status string
	err := row.Scan(
		&run.ID,
		&run.SessionID,
		&run.AppName,
		&run.PackageName,
		&wrapper,
		&status,
		&run.Report,
		&run.OutputPath,
		&run.EncryptedPassphrase,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Wrapper = models.WrapperStrategy(wrapper)
	run.Status = models.RunStatus(status)
	return &run, nil
}
