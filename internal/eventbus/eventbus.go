package eventbus

import (
	"sync"

	"github.com/google/uuid"

	"openclaw-dashboard/internal/model"
	"openclaw-dashboard/pkg/logger"
)

// Bus fans execution events out to subscribers. Publishing is fire-and-forget:
// a slow or dead subscriber never blocks the mutator.
type Bus interface {
	Subscribe() (token string, events <-chan model.ExecutionEvent)
	Unsubscribe(token string)
	Publish(event model.ExecutionEvent)
	SubscriberCount() int
	Close()
}

type memoryBus struct {
	mu          sync.RWMutex
	log         *logger.Logger
	subscribers map[string]chan model.ExecutionEvent
	bufferSize  int
	closed      bool
}

// NewBus creates an in-process bus. bufferSize is the per-subscriber channel
// depth; events beyond it are dropped for that subscriber only.
func NewBus(log *logger.Logger, bufferSize int) Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &memoryBus{
		log:         log,
		subscribers: make(map[string]chan model.ExecutionEvent),
		bufferSize:  bufferSize,
	}
}

func (b *memoryBus) Subscribe() (string, <-chan model.ExecutionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	token := uuid.NewString()
	ch := make(chan model.ExecutionEvent, b.bufferSize)
	if b.closed {
		close(ch)
		return token, ch
	}
	b.subscribers[token] = ch
	return token, ch
}

func (b *memoryBus) Unsubscribe(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[token]; ok {
		delete(b.subscribers, token)
		close(ch)
	}
}

func (b *memoryBus) Publish(event model.ExecutionEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event publish panicked", logger.Field("recovered", r))
		}
	}()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for token, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.log.Warn("Dropping event for slow subscriber",
				logger.StringField("token", token),
				logger.StringField("event_type", string(event.Type)),
				logger.StringField("execution_id", event.ExecutionID),
			)
		}
	}
}

func (b *memoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *memoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for token, ch := range b.subscribers {
		delete(b.subscribers, token)
		close(ch)
	}
}
