package agents

import (
	"encoding/json"
	"slices"
	"strings"
)

// StageRole selects the output rules applied to a stage's prompt.
// The empty role means the role is inferred from the stage's type and description.
type StageRole string

// Known stage roles.
const (
	RoleGeneric      StageRole = "generic"
	RoleFinalOutput  StageRole = "final_output"
	RoleVisualOutput StageRole = "visual_output"
)

var roles = []StageRole{
	RoleGeneric,
	RoleFinalOutput,
	RoleVisualOutput,
}

// Roles returns the list of explicit stage roles.
func Roles() []StageRole {
	return roles
}

// UnmarshalJSON accepts the empty string or a known role.
func (r *StageRole) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStageRole(raw)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseStageRole validates s as a stage role. The empty string is valid.
func ParseStageRole(s string) (StageRole, error) {
	v := StageRole(strings.TrimSpace(s))
	if v == "" || slices.Contains(roles, v) {
		return v, nil
	}
	return "", ErrInvalidRole
}

// InferRole derives a role from free-text stage metadata for definitions
// that carry no explicit role. A stage typed "output" is the final answer;
// "graph" or "visual" in the type or description selects markup output.
func InferRole(stageType, description string) StageRole {
	t := strings.ToLower(strings.TrimSpace(stageType))
	d := strings.ToLower(description)

	if t == "output" {
		return RoleFinalOutput
	}
	if strings.Contains(t, "graph") || strings.Contains(t, "visual") ||
		strings.Contains(d, "graph") || strings.Contains(d, "visual") {
		return RoleVisualOutput
	}
	return RoleGeneric
}
