package logstream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/droidwrap/droidwrap/internal/models"
)

// Subscriber receives live console entries for one wizard session.
type Subscriber struct {
	ID        string
	SessionID string
	Ch        chan models.LogEntry
	CreatedAt time.Time
}

// Broker fans live log entries out to stream subscribers (SSE and
// WebSocket clients). Publishing never blocks the sequencer: a subscriber
// whose channel is full simply misses the entry and catches up from a
// snapshot.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	logger      *slog.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber for the given session.
func (b *Broker) Subscribe(sessionID string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Ch:        make(chan models.LogEntry, 128),
		CreatedAt: time.Now(),
	}
	b.subscribers[sub.ID] = sub
	b.logger.Debug("log subscriber added", "subscriber_id", sub.ID, "session_id", sessionID)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.ID]; ok {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("log subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish delivers an entry to every subscriber of the session.
func (b *Broker) Publish(sessionID string, entry models.LogEntry) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.SessionID != sessionID {
			continue
		}
		select {
		case sub.Ch <- entry:
		default:
			b.logger.Warn("subscriber channel full, dropping log entry",
				"subscriber_id", sub.ID,
				"session_id", sessionID,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
