package model

import "time"

// EventType identifies what kind of state change an ExecutionEvent carries.
type EventType string

const (
	// EventConnected is sent once per SSE client on connect; it never comes
	// from the registry.
	EventConnected EventType = "connected"

	EventExecutionStarted   EventType = "execution_started"
	EventProgressUpdate     EventType = "progress_update"
	EventSubtaskComplete    EventType = "subtask_complete"
	EventLogAdded           EventType = "log_added"
	EventStatusChanged      EventType = "status_changed"
	EventExecutionCompleted EventType = "execution_completed"
	EventExecutionFailed    EventType = "execution_failed"
)

// ExecutionEvent is the transient notification emitted for every meaningful
// mutation of an execution record. It exists only to travel from the mutator
// to subscribers; it is never stored.
type ExecutionEvent struct {
	Type        EventType              `json:"type"`
	ExecutionID string                 `json:"executionId"`
	TaskID      string                 `json:"taskId"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
}
