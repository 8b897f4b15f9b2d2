// Package memory provides an in-memory Store used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/store"
)

// MemoryStore implements store.Store with process-local maps.
type MemoryStore struct {
	runs *RunStore
	logs *LogStore
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: &RunStore{runs: make(map[string]models.BuildRun)},
		logs: &LogStore{entries: make(map[string][]models.LogEntry)},
	}
}

// Runs returns the run store.
func (s *MemoryStore) Runs() store.RunStore { return s.runs }

// Logs returns the log store.
func (s *MemoryStore) Logs() store.LogStore { return s.logs }

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// RunStore implements store.RunStore in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]models.BuildRun
}

// Create persists a run record.
func (s *RunStore) Create(_ context.Context, run *models.BuildRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*models.BuildRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := run
	return &out, nil
}

// List retrieves the most recent runs, newest first.
func (s *RunStore) List(_ context.Context, limit int) ([]*models.BuildRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BuildRun, 0, len(s.runs))
	for _, run := range s.runs {
		r := run
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LogStore implements store.LogStore in memory.
type LogStore struct {
	mu      sync.RWMutex
	entries map[string][]models.LogEntry
}

// CreateBatch persists a run's log snapshot.
func (s *LogStore) CreateBatch(_ context.Context, runID string, entries []models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]models.LogEntry, len(entries))
	copy(batch, entries)
	s.entries[runID] = batch
	return nil
}

// List retrieves a run's log snapshot in stream order.
func (s *LogStore) List(_ context.Context, runID string) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.entries[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]models.LogEntry, len(entries))
	copy(out, entries)
	return out, nil
}
