package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/pkg/logger"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus(logger.NewNop(), 4)
	defer bus.Close()

	_, ch1 := bus.Subscribe()
	_, ch2 := bus.Subscribe()
	assert.Equal(t, 2, bus.SubscriberCount())

	bus.Publish(model.ExecutionEvent{Type: model.EventLogAdded, ExecutionID: "exec-1"})

	ev1 := <-ch1
	ev2 := <-ch2
	assert.Equal(t, "exec-1", ev1.ExecutionID)
	assert.Equal(t, "exec-1", ev2.ExecutionID)
}

func TestBus_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(logger.NewNop(), 1)
	defer bus.Close()

	_, slow := bus.Subscribe()
	_, fast := bus.Subscribe()

	// The slow subscriber's buffer holds one event; further publishes must
	// still reach the fast subscriber without blocking.
	for i := 0; i < 5; i++ {
		bus.Publish(model.ExecutionEvent{Type: model.EventProgressUpdate})
	}

	received := 0
	for len(fast) > 0 {
		<-fast
		received++
	}
	assert.Equal(t, 5, received)
	assert.Len(t, slow, 1)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(logger.NewNop(), 4)
	defer bus.Close()

	token, ch := bus.Subscribe()
	bus.Unsubscribe(token)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())

	// Unsubscribing twice is harmless.
	bus.Unsubscribe(token)
}

func TestBus_CloseTerminatesSubscribers(t *testing.T) {
	bus := NewBus(logger.NewNop(), 4)

	_, ch := bus.Subscribe()
	bus.Close()

	_, open := <-ch
	require.False(t, open)

	// Publishing after close must not panic.
	bus.Publish(model.ExecutionEvent{Type: model.EventStatusChanged})

	// New subscriptions after close get a closed channel.
	_, late := bus.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
