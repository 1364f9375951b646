package agent

import "time"

var developerProfile = &Profile{
	ID:             "developer",
	Name:           "Developer Agent",
	Role:           "Code Architect - code implementation, debugging, browser testing",
	DefaultTimeout: 600 * time.Second,
	Skills: []Skill{
		{ID: "code-generation", Name: "Code Generation", Description: "Production-ready code with tests", Category: SkillFile, Enabled: true},
		{ID: "browser-testing", Name: "Browser Testing", Description: "E2E testing via browser automation", Category: SkillBrowser, Enabled: true},
		{ID: "file-operations", Name: "File Operations", Description: "Read, write and edit files", Category: SkillFile, Enabled: true},
		{ID: "dependency-analysis", Name: "Dependency Analysis", Description: "Analyze dependencies and impact", Category: SkillShell, Enabled: true},
		{ID: "bug-diagnosis", Name: "Bug Diagnosis", Description: "Diagnose and fix bugs", Category: SkillFile, Enabled: true},
	},
	Workflow: []WorkflowStep{
		{Step: 1, Name: "ANALYZE", Description: "Read requirements and existing patterns", Required: true},
		{Step: 2, Name: "PLAN", Description: "Identify files to change and the strategy", Required: true},
		{Step: 3, Name: "IMPLEMENT", Description: "Write the code", Required: true},
		{Step: 4, Name: "TEST", Description: "Verify via tests or manual validation", Required: true},
		{Step: 5, Name: "REPORT", Description: "Summarize changes and evidence", Required: true},
	},
}

var researcherProfile = &Profile{
	ID:             "researcher",
	Name:           "Researcher Agent",
	Role:           "Knowledge Navigator - investigation, analysis, synthesis",
	DefaultTimeout: 300 * time.Second,
	Skills: []Skill{
		{ID: "web-search", Name: "Web Search", Description: "Search and evaluate online sources", Category: SkillWeb, Enabled: true},
		{ID: "source-analysis", Name: "Source Analysis", Description: "Cross-check and rank findings", Category: SkillWeb, Enabled: true},
		{ID: "synthesis", Name: "Synthesis", Description: "Condense findings into actionable notes", Category: SkillFile, Enabled: true},
	},
	Workflow: []WorkflowStep{
		{Step: 1, Name: "SCOPE", Description: "Clarify the research question", Required: true},
		{Step: 2, Name: "GATHER", Description: "Collect sources and raw material", Required: true},
		{Step: 3, Name: "ANALYZE", Description: "Evaluate and cross-reference", Required: true},
		{Step: 4, Name: "SYNTHESIZE", Description: "Write up conclusions", Required: true},
	},
}

var contentProfile = &Profile{
	ID:             "content",
	Name:           "Content Agent",
	Role:           "Documentation Writer - READMEs, guides, release notes",
	DefaultTimeout: 300 * time.Second,
	Skills: []Skill{
		{ID: "technical-writing", Name: "Technical Writing", Description: "Clear, structured documentation", Category: SkillFile, Enabled: true},
		{ID: "doc-structure", Name: "Doc Structure", Description: "Organize docs for discoverability", Category: SkillFile, Enabled: true},
	},
	Workflow: []WorkflowStep{
		{Step: 1, Name: "AUDIT", Description: "Review existing material", Required: true},
		{Step: 2, Name: "DRAFT", Description: "Write the content", Required: true},
		{Step: 3, Name: "POLISH", Description: "Edit for clarity and consistency", Required: true},
	},
}

var devopsProfile = &Profile{
	ID:             "devops",
	Name:           "DevOps Agent",
	Role:           "Infrastructure Engineer - CI/CD, deployment, containers",
	DefaultTimeout: 600 * time.Second,
	Skills: []Skill{
		{ID: "pipeline-config", Name: "Pipeline Config", Description: "CI/CD pipeline authoring", Category: SkillFile, Enabled: true},
		{ID: "container-ops", Name: "Container Ops", Description: "Docker images and compose files", Category: SkillShell, Enabled: true},
		{ID: "deploy-verify", Name: "Deploy Verify", Description: "Smoke-test deployed services", Category: SkillAPI, Enabled: true},
	},
	Workflow: []WorkflowStep{
		{Step: 1, Name: "ASSESS", Description: "Inspect current infrastructure state", Required: true},
		{Step: 2, Name: "CHANGE", Description: "Apply configuration changes", Required: true},
		{Step: 3, Name: "VERIFY", Description: "Confirm the environment is healthy", Required: true},
	},
}

var qaProfile = &Profile{
	ID:             "qa",
	Name:           "QA Agent",
	Role:           "Quality Assurance - testing, validation, audits",
	DefaultTimeout: 300 * time.Second,
	Skills: []Skill{
		{ID: "test-authoring", Name: "Test Authoring", Description: "Write unit and integration tests", Category: SkillFile, Enabled: true},
		{ID: "regression-check", Name: "Regression Check", Description: "Hunt for regressions around changes", Category: SkillShell, Enabled: true},
		{ID: "report-defects", Name: "Report Defects", Description: "File actionable defect reports", Category: SkillFile, Enabled: true},
	},
	Workflow: []WorkflowStep{
		{Step: 1, Name: "REVIEW", Description: "Understand what changed", Required: true},
		{Step: 2, Name: "TEST", Description: "Exercise the change paths", Required: true},
		{Step: 3, Name: "REPORT", Description: "Summarize coverage and defects", Required: true},
	},
}
