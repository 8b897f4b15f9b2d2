package logstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/droidwrap/droidwrap/internal/models"
)

func TestBrokerDeliversToSessionSubscribers(t *testing.T) {
	b := NewBroker(nil)

	subA := b.Subscribe("session-a")
	subB := b.Subscribe("session-b")
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	entry := models.LogEntry{ID: "e1", Message: "hello", Level: models.LevelInfo}
	b.Publish("session-a", entry)

	select {
	case got := <-subA.Ch:
		require.Equal(t, "e1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber A never received the entry")
	}

	select {
	case got := <-subB.Ch:
		t.Fatalf("subscriber B received entry %q for another session", got.ID)
	default:
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker(nil)

	sub := b.Subscribe("session")
	defer b.Unsubscribe(sub)

	// Publishing past the buffer must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(sub.Ch)+10; i++ {
			b.Publish("session", models.LogEntry{ID: "e", Message: "m"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(nil)

	sub := b.Subscribe("session")
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub.Ch
	require.False(t, open, "channel should be closed after unsubscribe")

	// Second unsubscribe is a no-op.
	b.Unsubscribe(sub)
}
