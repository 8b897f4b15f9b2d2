// Package logstream provides the append-only console stream for build runs
// and the fan-out broker behind the live log endpoints.
package logstream

import (
	"errors"
	"sync"

	"github.com/droidwrap/droidwrap/internal/models"
)

// ErrRunActive is returned when an operation requires an idle stream but a
// run currently owns the append cursor.
var ErrRunActive = errors.New("log stream is attached to an active run")

// ErrAlreadyAcquired is returned when a second run attempts to take the
// append cursor before the first released it.
var ErrAlreadyAcquired = errors.New("log stream already acquired")

// Stream is the ordered, append-only sequence of console entries for one
// wizard session. Entries are never reordered, deduplicated, or removed
// individually; the stream is cleared in bulk only between runs.
type Stream struct {
	mu      sync.Mutex
	entries []models.LogEntry
	active  bool
}

// NewStream returns an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Acquire marks the stream as owned by an active run. Clear is refused
// until Release is called.
func (s *Stream) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrAlreadyAcquired
	}
	s.active = true
	return nil
}

// Release returns the stream to the idle state.
func (s *Stream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Append adds an entry at the end of the stream. O(1), order preserving.
func (s *Stream) Append(e models.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// Snapshot returns a copy of the full ordered sequence at time of call.
func (s *Stream) Snapshot() []models.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tail returns the message text of the last n entries, oldest first.
// Timestamps and levels are stripped; this feeds the report adapter.
func (s *Stream) Tail(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(s.entries)-start)
	for _, e := range s.entries[start:] {
		out = append(out, e.Message)
	}
	return out
}

// Len returns the number of entries.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear resets the stream to empty. It is only permitted while no run is
// active; mid-run clears would break the append-order guarantee.
func (s *Stream) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrRunActive
	}
	s.entries = nil
	return nil
}
