package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openclaw-dashboard/internal/model"
)

func TestAll(t *testing.T) {
	profiles := All()
	require.Len(t, profiles, 5)
	assert.Equal(t, "developer", profiles[0].ID)
	assert.Equal(t, "qa", profiles[4].ID)
}

func TestByName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		found  bool
	}{
		{name: "exact id", input: "devops", wantID: "devops", found: true},
		{name: "case insensitive id", input: "DevOps", wantID: "devops", found: true},
		{name: "legacy display name", input: "Code Architect", wantID: "developer", found: true},
		{name: "legacy openclaw alias", input: "OpenClaw AI", wantID: "developer", found: true},
		{name: "contains legacy name", input: "the michel bot", wantID: "developer", found: true},
		{name: "unknown", input: "nonexistent", found: false},
		{name: "empty", input: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := ByName(tt.input)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, p)
				assert.Equal(t, tt.wantID, p.ID)
			}
		})
	}
}

func TestSelectProfile(t *testing.T) {
	tests := []struct {
		name    string
		agentID string
		task    model.Task
		wantID  string
	}{
		{
			name:    "explicit agent wins over keywords",
			agentID: "qa",
			task:    model.Task{Title: "deploy the feature", Tags: []string{"docker"}},
			wantID:  "qa",
		},
		{
			name:   "tag keyword",
			task:   model.Task{Title: "do the thing", Tags: []string{"research"}},
			wantID: "researcher",
		},
		{
			name:   "title keyword",
			task:   model.Task{Title: "update the readme"},
			wantID: "content",
		},
		{
			name:   "description keyword",
			task:   model.Task{Title: "misc work", Description: "set up the ci pipeline"},
			wantID: "devops",
		},
		{
			name:   "developer fallback",
			task:   model.Task{Title: "mysterious chore"},
			wantID: "developer",
		},
		{
			name:    "unknown explicit agent falls through to keywords",
			agentID: "bogus",
			task:    model.Task{Title: "fix the bug"},
			wantID:  "developer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SelectProfile(tt.agentID, tt.task)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantID, p.ID)
		})
	}
}
