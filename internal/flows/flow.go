// Package flows exports and imports reusable agent definitions as portable
// documents. A flow carries an agent's stages and its process settings but
// never run data.
package flows

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SchemaVersion identifies the document layout.
	SchemaVersion = "rainn.flow.v1"
	// Source is stamped on every exported document.
	Source = "rainn"
	// TimeFormat is the layout of Document.ExportedAt.
	TimeFormat = "2006-01-02T15:04:05Z"
)

// Format is a flow document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves a format name. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the media type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Document is the exchange envelope.
type Document struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
	ExportedAt    string `json:"exported_at" yaml:"exported_at"`
	Flow          Flow   `json:"flow" yaml:"flow"`
	Source        string `json:"source" yaml:"source"`
}

// Flow describes a process and the agent it runs.
type Flow struct {
	AgentName       string      `json:"agent_name" yaml:"agent_name"`
	AIModel         string      `json:"ai_model" yaml:"ai_model"`
	TaskTitle       string      `json:"task_title" yaml:"task_title"`
	TaskDescription string      `json:"task_description" yaml:"task_description"`
	PrimerText      string      `json:"primer_text" yaml:"primer_text"`
	Stages          []FlowStage `json:"stages" yaml:"stages"`
}

// FlowStage is one stage of a flow. Order is 1-based.
type FlowStage struct {
	Order       int    `json:"order" yaml:"order"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

var requiredFields = []string{"agent_name", "ai_model", "task_title", "task_description", "stages"}

// Decode parses and validates a flow document.
func Decode(data []byte, format Format) (*Document, error) {
	var raw any
	if err := unmarshal(data, format, &raw); err != nil {
		return nil, invalid("Invalid JSON format.")
	}

	if err := Validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := unmarshal(data, format, &doc); err != nil {
		return nil, invalid("Invalid JSON format.")
	}
	return &doc, nil
}

// Encode renders a document. JSON is indented by two spaces.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return json.MarshalIndent(doc, "", "  ")
	}
}

// Validate checks a decoded, untyped document and returns a *ValidationError
// describing the first problem found.
func Validate(raw any) error {
	payload, ok := raw.(map[string]any)
	if !ok {
		return invalid("Invalid JSON format.")
	}

	if v, _ := payload["schema_version"].(string); v != SchemaVersion {
		return invalid("Unsupported schema_version.")
	}

	flow, ok := payload["flow"].(map[string]any)
	if !ok {
		return invalid("Missing flow definition.")
	}

	for _, key := range requiredFields {
		if v, ok := flow[key]; !ok || v == nil || v == "" {
			return invalid("Missing required field: flow." + key)
		}
	}

	stages, ok := flow["stages"].([]any)
	if !ok || len(stages) == 0 {
		return invalid("Stages must be a non-empty array.")
	}

	for _, s := range stages {
		stage, ok := s.(map[string]any)
		if !ok {
			return invalid("Each stage must be an object.")
		}
		if !present(stage["name"]) || !present(stage["description"]) {
			return invalid("Each stage must include name and description.")
		}
	}

	return nil
}

func present(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}

func unmarshal(data []byte, format Format, v any) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
