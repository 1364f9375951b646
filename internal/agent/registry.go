package agent

import (
	"strings"

	"openclaw-dashboard/internal/model"
)

var registry = map[string]*Profile{
	"developer":  developerProfile,
	"researcher": researcherProfile,
	"content":    contentProfile,
	"devops":     devopsProfile,
	"qa":         qaProfile,
}

// legacyNames maps historical assignee labels to current profile IDs.
var legacyNames = map[string]string{
	"openclaw ai":             "developer",
	"openclaw":                "developer",
	"michel":                  "developer",
	"code architect":          "developer",
	"developer agent":         "developer",
	"knowledge navigator":     "researcher",
	"researcher agent":        "researcher",
	"documentation writer":    "content",
	"content agent":           "content",
	"infrastructure engineer": "devops",
	"devops agent":            "devops",
	"quality assurance":       "qa",
	"qa agent":                "qa",
}

type taskMapping struct {
	keyword string
	agentID string
}

// taskMappings is scanned in order; the first keyword hit wins.
var taskMappings = []taskMapping{
	{"feature", "developer"},
	{"implementation", "developer"},
	{"bugfix", "developer"},
	{"bug", "developer"},
	{"research", "researcher"},
	{"investigation", "researcher"},
	{"documentation", "content"},
	{"docs", "content"},
	{"readme", "content"},
	{"deployment", "devops"},
	{"deploy", "devops"},
	{"ci", "devops"},
	{"cd", "devops"},
	{"docker", "devops"},
	{"infrastructure", "devops"},
	{"test", "qa"},
	{"testing", "qa"},
	{"validation", "qa"},
	{"audit", "qa"},
	{"review", "qa"},
}

// Get returns a profile by its exact ID.
func Get(agentID string) (*Profile, bool) {
	p, ok := registry[agentID]
	return p, ok
}

// All returns every registered profile.
func All() []*Profile {
	out := make([]*Profile, 0, len(registry))
	for _, id := range []string{"developer", "researcher", "content", "devops", "qa"} {
		out = append(out, registry[id])
	}
	return out
}

// ByName resolves an agent from any ID or legacy display name,
// case-insensitively.
func ByName(name string) (*Profile, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, false
	}
	if p, ok := registry[normalized]; ok {
		return p, true
	}
	if id, ok := legacyNames[normalized]; ok {
		return registry[id], true
	}
	for key, id := range legacyNames {
		if strings.Contains(normalized, key) {
			return registry[id], true
		}
	}
	return nil, false
}

// SelectProfile picks the agent for an execution. An explicit agentId wins;
// otherwise keywords from the task's tags, title and description choose one;
// the developer profile is the fallback.
func SelectProfile(agentID string, task model.Task) *Profile {
	if agentID != "" {
		if p, ok := ByName(agentID); ok {
			return p
		}
	}

	var terms []string
	for _, tag := range task.Tags {
		terms = append(terms, strings.ToLower(tag))
	}
	terms = append(terms, strings.Fields(strings.ToLower(task.Title))...)
	words := strings.Fields(strings.ToLower(task.Description))
	if len(words) > 10 {
		words = words[:10]
	}
	terms = append(terms, words...)

	for _, mapping := range taskMappings {
		for _, term := range terms {
			if term == mapping.keyword || strings.Contains(term, mapping.keyword) {
				return registry[mapping.agentID]
			}
		}
	}

	return developerProfile
}
