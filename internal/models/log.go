package models

import "time"

// Level classifies a console log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Valid reports whether the level is one of the known console levels.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarn, LevelError, LevelSuccess:
		return true
	}
	return false
}

// LogEntry is a single immutable line in a build run's console stream.
// Entries are created by the step sequencer, never mutated or removed,
// and cleared in bulk only when a new run starts.
type LogEntry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
