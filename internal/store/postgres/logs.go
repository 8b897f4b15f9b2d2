package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/store"
)

// LogStore implements store.LogStore using PostgreSQL.
type LogStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// CreateBatch persists a run's full log snapshot in stream order inside a
// single transaction.
func (s *LogStore) CreateBatch(ctx context.Context, runID string, entries []models.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_logs (id, run_id, seq, level, message, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, runID, i, string(e.Level), e.Message, e.Timestamp); err != nil {
			return fmt.Errorf("inserting log entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing log batch: %w", err)
	}
	return nil
}

// List retrieves a run's log snapshot in stream order.
func (s *LogStore) List(ctx context.Context, runID string) ([]models.LogEntry, error) {
	query := `
		SELECT id, level, message, timestamp
		FROM run_logs
		WHERE run_id = $1
		ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run logs: %w", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		var level string
		if err := rows.Scan(&e.ID, &level, &e.Message, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.RunID = runID
		e.Level = models.Level(level)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, store.ErrNotFound
	}
	return out, nil
}
