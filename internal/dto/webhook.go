package dto

// WebhookAction values accepted from the worker. The prompt builder renders
// exactly these names; the two must never drift apart.
const (
	ActionProgressUpdate  = "progress_update"
	ActionSubtaskComplete = "subtask_complete"
	ActionLog             = "log"
	ActionRequestReview   = "request_review"
	ActionComplete        = "complete"
	ActionError           = "error"
)

type WebhookData struct {
	Progress    *int   `json:"progress,omitempty"`
	Message     string `json:"message,omitempty"`
	SubtaskID   string `json:"subtaskId,omitempty"`
	ReviewNotes string `json:"reviewNotes,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Error       string `json:"error,omitempty"`
}

type WebhookRequest struct {
	TaskID      string      `json:"taskId" validate:"required"`
	ExecutionID string      `json:"executionId" validate:"required"`
	Action      string      `json:"action" validate:"required"`
	Data        WebhookData `json:"data"`
}

// TargetStatus hints where the board should move the task's card.
type WebhookResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	SubtaskID    string `json:"subtaskId,omitempty"`
	TargetStatus string `json:"targetStatus,omitempty"`
}
