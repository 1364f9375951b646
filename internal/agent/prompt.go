package agent

import (
	"fmt"
	"strings"

	"openclaw-dashboard/internal/model"
)

// BuildPrompt renders the instruction payload handed to the worker binary.
// It is pure: same inputs, same output, no I/O. The webhook examples below
// are the protocol contract — their JSON shape must stay in lockstep with
// what the webhook endpoint accepts, because the worker is an LLM agent that
// follows these examples literally.
func BuildPrompt(profile *Profile, task model.Task, executionID, callbackURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - Task Execution\n\n", profile.Name)
	fmt.Fprintf(&b, "## Agent Profile\n**Role:** %s\n**Agent ID:** %s\n\n", profile.Role, profile.ID)

	b.WriteString("## Active Skills\n")
	for _, s := range profile.EnabledSkills() {
		fmt.Fprintf(&b, "- **%s**: %s\n", s.Name, s.Description)
	}

	b.WriteString("\n## Workflow Steps\n")
	for _, w := range profile.Workflow {
		fmt.Fprintf(&b, "%d. **%s** - %s", w.Step, w.Name, w.Description)
		if w.Required {
			b.WriteString(" *(required)*")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n---\n\n## TASK EXECUTION REQUEST\n")
	fmt.Fprintf(&b, "**Task ID:** %s\n", task.ID)
	fmt.Fprintf(&b, "**Execution ID:** %s\n", executionID)
	fmt.Fprintf(&b, "**Title:** %s\n", task.Title)
	fmt.Fprintf(&b, "**Priority:** %s %s\n", priorityMarker(task.Priority), task.Priority)

	b.WriteString("\n## Description\n")
	if task.Description != "" {
		b.WriteString(task.Description)
	} else {
		b.WriteString("No description provided.")
	}

	b.WriteString("\n\n## Subtasks\n")
	if len(task.Subtasks) == 0 {
		b.WriteString("No subtasks defined.")
	} else {
		for i, st := range task.Subtasks {
			mark := " "
			if st.Completed {
				mark = "x"
			}
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- [%s] [%s] %s", mark, st.ID, st.Text)
		}
	}

	fmt.Fprintf(&b, "\n\n---\n\n## Progress Reporting\nReport your progress via POST %s/api/openclaw/webhook\n\n", callbackURL)
	b.WriteString("### Available Webhook Actions\n\n")

	writeAction(&b, 1, "subtask_complete", "Mark a subtask as done", task.ID, executionID,
		`{ "subtaskId": "st-xxx" }`)
	writeAction(&b, 2, "progress_update", "Update overall progress (0-100)", task.ID, executionID,
		`{ "progress": 50, "message": "Working on step 2..." }`)
	writeAction(&b, 3, "log", "Add a log entry", task.ID, executionID,
		`{ "message": "Found relevant files" }`)
	writeAction(&b, 4, "request_review", "Request human review before completion", task.ID, executionID,
		`{ "reviewNotes": "Please verify the changes to..." }`)
	writeAction(&b, 5, "complete", "Mark task as complete", task.ID, executionID,
		`{ "summary": "Successfully completed all steps" }`)
	writeAction(&b, 6, "error", "Report an error", task.ID, executionID,
		`{ "error": "Error message describing what went wrong" }`)

	b.WriteString("---\n\n## Execution Instructions\n\nFollow your workflow steps in order:\n")
	for _, w := range profile.Workflow {
		fmt.Fprintf(&b, "%d. %s: %s\n", w.Step, w.Name, w.Description)
	}

	b.WriteString("\n**Important Guidelines:**\n")
	b.WriteString("- Report progress after each workflow step\n")
	b.WriteString("- Mark subtasks as complete when finished\n")
	b.WriteString("- If you encounter blockers, use the error webhook\n")
	b.WriteString("- For ambiguous decisions, use request_review\n")

	first := "ANALYZE"
	if len(profile.Workflow) > 0 {
		first = profile.Workflow[0].Name
	}
	fmt.Fprintf(&b, "\nBegin execution now, starting with step 1: **%s**", first)

	return b.String()
}

func writeAction(b *strings.Builder, n int, action, description, taskID, executionID, data string) {
	fmt.Fprintf(b, "%d. **%s** - %s\n```json\n", n, action, description)
	fmt.Fprintf(b, "{\n  \"taskId\": %q,\n  \"executionId\": %q,\n  \"action\": %q,\n  \"data\": %s\n}\n", taskID, executionID, action, data)
	b.WriteString("```\n\n")
}

func priorityMarker(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}
