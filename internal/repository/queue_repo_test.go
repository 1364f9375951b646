package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-dashboard/internal/model"
)

func TestQueueRepository_PriorityOrdering(t *testing.T) {
	q := NewQueueRepository()

	q.Enqueue("task-low", model.PriorityLow)
	q.Enqueue("task-high", model.PriorityHigh)
	q.Enqueue("task-medium", model.PriorityMedium)

	list := q.List()
	require.Len(t, list, 3)
	assert.Equal(t, "task-high", list[0].TaskID)
	assert.Equal(t, "task-medium", list[1].TaskID)
	assert.Equal(t, "task-low", list[2].TaskID)
}

func TestQueueRepository_FIFOWithinPriority(t *testing.T) {
	q := NewQueueRepository()

	q.Enqueue("task-1", model.PriorityMedium)
	q.Enqueue("task-2", model.PriorityMedium)
	q.Enqueue("task-3", model.PriorityMedium)

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "task-1", first.TaskID)

	second, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "task-2", second.TaskID)
}

func TestQueueRepository_RequeueReplacesEntry(t *testing.T) {
	q := NewQueueRepository()

	q.Enqueue("task-1", model.PriorityLow)
	q.Enqueue("task-2", model.PriorityLow)
	q.Enqueue("task-1", model.PriorityHigh)

	assert.Equal(t, 2, q.Len())

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "task-1", first.TaskID)
	assert.Equal(t, model.PriorityHigh, first.Priority)
}

func TestQueueRepository_Remove(t *testing.T) {
	q := NewQueueRepository()

	q.Enqueue("task-1", model.PriorityMedium)
	q.Enqueue("task-2", model.PriorityMedium)

	assert.True(t, q.Remove("task-1"))
	assert.False(t, q.Remove("task-1"))
	assert.Equal(t, 1, q.Len())

	item, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "task-2", item.TaskID)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}
