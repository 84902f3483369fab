package execution

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/rainn/internal/agents"
)

const (
	unnamedAgent = "[Unnamed Agent]"
	unnamedStage = "[Unnamed Stage]"
	emptyPlan    = "No stages defined"

	priorityRules = `[PRIORITY RULES]
- The system primer sets global rules, tone, and formatting.
- Stage instructions define the task for this step.
- If there is a conflict, follow the system primer.`

	finalOutputRules = `[OUTPUT RULES FOR FINAL STAGE]
- This is the final stage. Do not mention stages, pipelines, or scripts.
- Do not ask to proceed or request confirmation.
- Provide the final response only.
- Do not include code, pseudocode, or implementation steps.`

	visualOutputRules = `[OUTPUT RULES FOR GRAPH]
- Return ONLY valid standalone SVG markup.
- Output must start with "<svg" and end with "</svg>".
- No prose, no markdown, no code fences.`
)

// CompileMasterPrompt renders the stage-independent context shared by every
// stage call: agent metadata, the numbered plan over all stages (input
// included), the normalized input, and generic output rules. Priming is not
// part of it; it travels on the model's system channel.
func CompileMasterPrompt(agent *agents.Agent, stages []agents.Stage, input string) string {
	name := unnamedAgent
	var description string
	if agent != nil {
		if n := strings.TrimSpace(agent.Name); n != "" {
			name = n
		}
		description = strings.TrimSpace(agent.Description)
	}

	plan := renderPlan(stages)
	if plan == "" {
		plan = emptyPlan
	}

	prompt := fmt.Sprintf(`[AGENT TEMPLATE]
Name: %s
Description: %s

[WORKFLOW PLAN]
%s

[INPUT]
%s

[OUTPUT RULES]
- Follow the workflow plan step-by-step.
- Keep outputs clear and structured.
- Do not invent facts not present in the input.`,
		name, description, plan, strings.TrimSpace(input),
	)

	return strings.TrimSpace(prompt)
}

// BuildStagePrompt appends the current stage's directive, the chained input,
// and role-specific output rules to the master prompt.
func BuildStagePrompt(master string, stage agents.Stage, input string) string {
	prompt := fmt.Sprintf(`%s

[CURRENT STAGE]
Type: %s
Goal: %s

[CURRENT INPUT]
%s

[PRIORITY]
%s

[INSTRUCTIONS]
Perform ONLY this stage. Output must be suitable as input to the next stage.
%s`,
		strings.TrimSpace(master),
		strings.TrimSpace(stage.Type),
		strings.TrimSpace(stage.Description),
		strings.TrimSpace(input),
		priorityRules,
		OutputRules(stage.EffectiveRole()),
	)

	return strings.TrimSpace(prompt)
}

// OutputRules returns the formatting constraints injected for a stage role.
// Generic stages receive none.
func OutputRules(role agents.StageRole) string {
	switch role {
	case agents.RoleFinalOutput:
		return finalOutputRules
	case agents.RoleVisualOutput:
		return visualOutputRules
	default:
		return ""
	}
}

func renderPlan(stages []agents.Stage) string {
	lines := make([]string, 0, len(stages))
	for i, s := range stages {
		t := strings.TrimSpace(s.Type)
		d := strings.TrimSpace(s.Description)

		var line string
		switch {
		case t != "" && d != "":
			line = fmt.Sprintf("%d. %s - %s", i+1, t, d)
		case t != "":
			line = fmt.Sprintf("%d. %s", i+1, t)
		case d != "":
			line = fmt.Sprintf("%d. %s", i+1, d)
		default:
			line = fmt.Sprintf("%d. %s", i+1, unnamedStage)
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
