package dto

import "openclaw-dashboard/internal/model"

// StartExecutionRequest carries the task data handed over by the board. The
// execution core keeps no task store of its own, so everything the worker
// needs to know travels with the start request.
type StartExecutionRequest struct {
	TaskID      string          `json:"taskId" validate:"required"`
	Force       bool            `json:"force"`
	AgentID     string          `json:"agentId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Subtasks    []model.Subtask `json:"subtasks"`
}

type StartExecutionResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"executionId,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
}

type CancelExecutionRequest struct {
	TaskID      string `json:"taskId"`
	ExecutionID string `json:"executionId"`
}

type CancelExecutionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommandRequest runs a one-shot agent command outside any execution record.
type CommandRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"sessionId"`
	Agent     string `json:"agent"`
	Timeout   int    `json:"timeout"`
}

type CommandResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}
