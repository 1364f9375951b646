package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-dashboard/internal/model"
)

func promptTask() model.Task {
	return model.Task{
		ID:          "task-1",
		Title:       "Build the widget",
		Description: "Widgets all the way down",
		Priority:    model.PriorityHigh,
		Subtasks: []model.Subtask{
			{ID: "st-1", Text: "design it", Completed: true},
			{ID: "st-2", Text: "build it"},
		},
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	profile, ok := Get("developer")
	require.True(t, ok)

	a := BuildPrompt(profile, promptTask(), "exec-1", "http://localhost:3001")
	b := BuildPrompt(profile, promptTask(), "exec-1", "http://localhost:3001")
	assert.Equal(t, a, b)
}

func TestBuildPrompt_Content(t *testing.T) {
	profile, ok := Get("developer")
	require.True(t, ok)

	prompt := BuildPrompt(profile, promptTask(), "exec-1", "http://localhost:3001")

	assert.Contains(t, prompt, "Developer Agent")
	assert.Contains(t, prompt, "**Task ID:** task-1")
	assert.Contains(t, prompt, "**Execution ID:** exec-1")
	assert.Contains(t, prompt, "Build the widget")

	// Subtask checkbox states.
	assert.Contains(t, prompt, "- [x] [st-1] design it")
	assert.Contains(t, prompt, "- [ ] [st-2] build it")

	// The webhook protocol block points at the callback endpoint and lists
	// every action the reconciler accepts.
	assert.Contains(t, prompt, "POST http://localhost:3001/api/openclaw/webhook")
	for _, action := range []string{"progress_update", "subtask_complete", "log", "request_review", "complete", "error"} {
		assert.Contains(t, prompt, "\"action\": \""+action+"\"")
	}
	assert.Contains(t, prompt, "\"executionId\": \"exec-1\"")

	// Workflow kickoff references the first step.
	assert.True(t, strings.HasSuffix(prompt, "**ANALYZE**"))
}

func TestBuildPrompt_EmptySections(t *testing.T) {
	profile, ok := Get("researcher")
	require.True(t, ok)

	task := model.Task{ID: "task-2", Title: "Bare task"}
	prompt := BuildPrompt(profile, task, "exec-2", "http://localhost:3001")

	assert.Contains(t, prompt, "No description provided.")
	assert.Contains(t, prompt, "No subtasks defined.")
	assert.True(t, strings.HasSuffix(prompt, "**SCOPE**"))
}
