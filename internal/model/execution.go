package model

import (
	"time"
)

// ExecutionStatus is the lifecycle state of a single execution attempt.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusStarting  ExecutionStatus = "starting"
	StatusRunning   ExecutionStatus = "running"
	StatusPaused    ExecutionStatus = "paused"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// transitions lists the allowed next states per state. Terminal states have
// no entries: once completed, failed or cancelled, a record is a sink.
var transitions = map[ExecutionStatus][]ExecutionStatus{
	StatusPending:  {StatusStarting, StatusFailed, StatusCancelled},
	StatusStarting: {StatusRunning, StatusFailed, StatusCancelled},
	StatusRunning:  {StatusPaused, StatusCompleted, StatusFailed, StatusCancelled},
	StatusPaused:   {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to ExecutionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is a sink state.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether an execution in this status still occupies the
// task's single active slot.
func (s ExecutionStatus) IsActive() bool {
	return s == StatusPending || s == StatusStarting || s == StatusRunning || s == StatusPaused
}

// LogType categorizes execution log entries.
type LogType string

const (
	LogInfo     LogType = "info"
	LogProgress LogType = "progress"
	LogSubtask  LogType = "subtask"
	LogError    LogType = "error"
	LogSystem   LogType = "system"
)

// LogEntry is immutable once appended to an execution.
type LogEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      LogType                `json:"type"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ExecutionResult accumulates worker-reported outcome data.
type ExecutionResult struct {
	Summary           string   `json:"summary,omitempty"`
	ReviewNotes       string   `json:"reviewNotes,omitempty"`
	CompletedSubtasks []string `json:"completedSubtasks"`
}

// ExecutionRecord is the canonical record of one run attempt for a task.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	TaskID      string          `json:"taskId"`
	Status      ExecutionStatus `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Logs        []LogEntry      `json:"logs"`
	Result      ExecutionResult `json:"result"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`

	// WebhookProgress marks that the worker reported progress through the
	// webhook. The supervisor's stdout scraping yields once this is set.
	WebhookProgress bool `json:"-"`
}

// Clone returns a deep copy, safe to hand to callers outside the registry lock.
func (e *ExecutionRecord) Clone() *ExecutionRecord {
	c := *e
	c.Logs = make([]LogEntry, len(e.Logs))
	copy(c.Logs, e.Logs)
	c.Result.CompletedSubtasks = make([]string, len(e.Result.CompletedSubtasks))
	copy(c.Result.CompletedSubtasks, e.Result.CompletedSubtasks)
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// HasCompletedSubtask reports whether a subtask ID is already in the
// completed set.
func (e *ExecutionRecord) HasCompletedSubtask(subtaskID string) bool {
	for _, id := range e.Result.CompletedSubtasks {
		if id == subtaskID {
			return true
		}
	}
	return false
}

// Priority orders queued executions.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort order of a priority, lower is more urgent. Unknown
// priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// QueuedExecution is a task waiting for a running slot.
type QueuedExecution struct {
	TaskID   string    `json:"taskId"`
	Priority Priority  `json:"priority"`
	QueuedAt time.Time `json:"queuedAt"`
}
