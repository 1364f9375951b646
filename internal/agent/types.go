package agent

import "time"

// SkillCategory groups what kind of tooling a skill relies on.
type SkillCategory string

const (
	SkillFile    SkillCategory = "file"
	SkillWeb     SkillCategory = "web"
	SkillBrowser SkillCategory = "browser"
	SkillShell   SkillCategory = "shell"
	SkillAPI     SkillCategory = "api"
)

type Skill struct {
	ID          string
	Name        string
	Description string
	Category    SkillCategory
	Enabled     bool
}

type WorkflowStep struct {
	Step        int
	Name        string
	Description string
	Required    bool
}

// Profile describes one specialized agent the worker binary can run as.
type Profile struct {
	ID             string
	Name           string
	Role           string
	DefaultTimeout time.Duration
	Skills         []Skill
	Workflow       []WorkflowStep
}

// EnabledSkills returns the subset of skills currently switched on.
func (p *Profile) EnabledSkills() []Skill {
	var enabled []Skill
	for _, s := range p.Skills {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}
