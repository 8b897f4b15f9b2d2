package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/droidwrap/droidwrap/internal/analysis"
	"github.com/droidwrap/droidwrap/internal/logstream"
	"github.com/droidwrap/droidwrap/internal/secrets"
	"github.com/droidwrap/droidwrap/internal/sequencer"
	"github.com/droidwrap/droidwrap/internal/store"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Deps carries everything sessions need. Store, Adapter, and Logger are
// required; the rest default sensibly.
type Deps struct {
	Store   store.Store
	Adapter *analysis.Adapter
	// Secrets is optional; without it keystore passphrases are simply
	// not persisted.
	Secrets *secrets.Service
	Broker  *logstream.Broker
	Logger  *slog.Logger

	TickInterval  time.Duration
	WarnThreshold float64
	ReportTail    int

	// NewTickSource overrides the tick source per run; tests use it to
	// drive runs manually.
	NewTickSource func() sequencer.TickSource
}

// Manager tracks wizard sessions for concurrent browser clients.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewManager creates a session manager.
func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Broker == nil {
		deps.Broker = logstream.NewBroker(deps.Logger)
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = sequencer.DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions:   make(map[string]*Session),
		deps:       deps,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// newTickSource builds the tick source for one run.
func (m *Manager) newTickSource() sequencer.TickSource {
	if m.deps.NewTickSource != nil {
		return m.deps.NewTickSource()
	}
	return sequencer.NewIntervalTicker(m.deps.TickInterval)
}

// Create registers a new wizard session.
func (m *Manager) Create() *Session {
	s := newSession(m)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.deps.Logger.Info("session created", "session_id", s.ID)
	return s
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Broker returns the shared live-log broker.
func (m *Manager) Broker() *logstream.Broker {
	return m.deps.Broker
}

// Name implements shutdown.Component.
func (m *Manager) Name() string { return "wizard" }

// Shutdown aborts all active runs. Sessions themselves are in-memory and
// need no further teardown.
func (m *Manager) Shutdown(context.Context) error {
	m.baseCancel()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.Abort()
	}
	return nil
}
