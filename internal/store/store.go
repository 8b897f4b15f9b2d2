// Package store provides persistence interfaces for finished build runs.
// The simulator core keeps no files; run history is a concern of the
// surrounding shell and lives behind these interfaces.
package store

import (
	"context"
	"errors"

	"github.com/droidwrap/droidwrap/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStore defines operations on persisted build runs.
type RunStore interface {
	// Create persists a finished run record.
	Create(ctx context.Context, run *models.BuildRun) error
	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*models.BuildRun, error)
	// List retrieves the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]*models.BuildRun, error)
}

// LogStore defines operations on persisted run log snapshots.
type LogStore interface {
	// CreateBatch persists a run's full log snapshot in stream order.
	CreateBatch(ctx context.Context, runID string, entries []models.LogEntry) error
	// List retrieves a run's log snapshot in stream order.
	List(ctx context.Context, runID string) ([]models.LogEntry, error)
}

// Store is the main interface for run-history persistence.
type Store interface {
	// Runs returns the RunStore.
	Runs() RunStore
	// Logs returns the LogStore.
	Logs() LogStore
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	// Close releases the backing resources.
	Close() error
}
