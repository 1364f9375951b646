package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ExecutionStatus
		to   ExecutionStatus
		want bool
	}{
		{name: "pending to starting", from: StatusPending, to: StatusStarting, want: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, want: true},
		{name: "pending to running skips starting", from: StatusPending, to: StatusRunning, want: false},
		{name: "starting to running", from: StatusStarting, to: StatusRunning, want: true},
		{name: "running to paused", from: StatusRunning, to: StatusPaused, want: true},
		{name: "running to completed", from: StatusRunning, to: StatusCompleted, want: true},
		{name: "paused to completed", from: StatusPaused, to: StatusCompleted, want: true},
		{name: "paused to running not allowed", from: StatusPaused, to: StatusRunning, want: false},
		{name: "completed is a sink", from: StatusCompleted, to: StatusRunning, want: false},
		{name: "failed is a sink", from: StatusFailed, to: StatusPending, want: false},
		{name: "cancelled is a sink", from: StatusCancelled, to: StatusStarting, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusStarting.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
}

func TestExecutionStatus_IsActive(t *testing.T) {
	for _, s := range []ExecutionStatus{StatusPending, StatusStarting, StatusRunning, StatusPaused} {
		assert.True(t, s.IsActive(), string(s))
	}
	for _, s := range []ExecutionStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.False(t, s.IsActive(), string(s))
	}
}

func TestExecutionRecord_Clone(t *testing.T) {
	now := time.Now()
	rec := &ExecutionRecord{
		ID:     "exec-1",
		TaskID: "task-1",
		Status: StatusRunning,
		Logs: []LogEntry{
			{ID: "log-1", Message: "first"},
		},
		Result:      ExecutionResult{CompletedSubtasks: []string{"st-1"}},
		CompletedAt: &now,
	}

	clone := rec.Clone()
	clone.Logs[0].Message = "mutated"
	clone.Logs = append(clone.Logs, LogEntry{ID: "log-2"})
	clone.Result.CompletedSubtasks[0] = "st-other"
	*clone.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, "first", rec.Logs[0].Message)
	assert.Len(t, rec.Logs, 1)
	assert.Equal(t, "st-1", rec.Result.CompletedSubtasks[0])
	assert.Equal(t, now, *rec.CompletedAt)
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}
