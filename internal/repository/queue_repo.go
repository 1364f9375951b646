package repository

import (
	"sync"
	"time"

	"openclaw-dashboard/internal/model"
)

// QueueRepository holds tasks waiting for a running slot. Ordering is by
// priority (high > medium > low), FIFO within a priority. Re-queuing a task
// replaces its existing entry instead of duplicating it.
type QueueRepository interface {
	Enqueue(taskID string, priority model.Priority) model.QueuedExecution
	Dequeue() (model.QueuedExecution, bool)
	Remove(taskID string) bool
	List() []model.QueuedExecution
	Len() int
}

type queueRepository struct {
	mu    sync.Mutex
	queue []model.QueuedExecution
}

func NewQueueRepository() QueueRepository {
	return &queueRepository{}
}

func (q *queueRepository) Enqueue(taskID string, priority model.Priority) model.QueuedExecution {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(taskID)

	item := model.QueuedExecution{
		TaskID:   taskID,
		Priority: priority,
		QueuedAt: time.Now(),
	}

	insertAt := len(q.queue)
	for i, existing := range q.queue {
		if existing.Priority.Rank() > item.Priority.Rank() {
			insertAt = i
			break
		}
	}

	q.queue = append(q.queue, model.QueuedExecution{})
	copy(q.queue[insertAt+1:], q.queue[insertAt:])
	q.queue[insertAt] = item

	return item
}

func (q *queueRepository) Dequeue() (model.QueuedExecution, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return model.QueuedExecution{}, false
	}
	item := q.queue[0]
	q.queue = q.queue[1:]
	return item, true
}

func (q *queueRepository) Remove(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.removeLocked(taskID)
}

func (q *queueRepository) removeLocked(taskID string) bool {
	for i, item := range q.queue {
		if item.TaskID == taskID {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (q *queueRepository) List() []model.QueuedExecution {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.QueuedExecution, len(q.queue))
	copy(out, q.queue)
	return out
}

func (q *queueRepository) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queue)
}
