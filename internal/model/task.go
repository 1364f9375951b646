package model

// Subtask is a single checklist item of a task.
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task carries the board-side task data handed over on a start request. The
// dashboard owns task persistence; the execution core only needs enough to
// brief the worker.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Tags        []string  `json:"tags,omitempty"`
	Subtasks    []Subtask `json:"subtasks"`
}
