package flows_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/rainn/internal/flows"
)

const validFlow = `{
  "schema_version": "rainn.flow.v1",
  "exported_at": "2026-04-02T10:00:00Z",
  "source": "rainn",
  "flow": {
    "agent_name": "Nightly summary",
    "ai_model": "llama3",
    "task_title": "Summarizer",
    "task_description": "Summarize uploaded reports",
    "primer_text": "Answer in English.",
    "stages": [
      {"order": 2, "name": "facts", "description": "Extract key facts"},
      {"order": 3, "name": "output", "description": "Write the summary"}
    ]
  }
}`

func TestValidate(t *testing.T) {
	flow := func(overrides map[string]any) map[string]any {
		f := map[string]any{
			"agent_name":       "Nightly",
			"ai_model":         "llama3",
			"task_title":       "Summarizer",
			"task_description": "Summarize",
			"stages":           []any{map[string]any{"name": "facts", "description": "Extract"}},
		}
		for k, v := range overrides {
			if v == nil {
				delete(f, k)
				continue
			}
			f[k] = v
		}
		return map[string]any{"schema_version": flows.SchemaVersion, "flow": f}
	}

	tests := []struct {
		name    string
		raw     any
		wantMsg string
	}{
		{"valid", flow(nil), ""},
		{"not an object", []any{1, 2}, "Invalid JSON format."},
		{"wrong schema", map[string]any{"schema_version": "rainn.flow.v0", "flow": map[string]any{}}, "Unsupported schema_version."},
		{"missing schema", map[string]any{"flow": map[string]any{}}, "Unsupported schema_version."},
		{"missing flow", map[string]any{"schema_version": flows.SchemaVersion}, "Missing flow definition."},
		{"flow not object", map[string]any{"schema_version": flows.SchemaVersion, "flow": "x"}, "Missing flow definition."},
		{"missing agent name", flow(map[string]any{"agent_name": nil}), "Missing required field: flow.agent_name"},
		{"empty model", flow(map[string]any{"ai_model": ""}), "Missing required field: flow.ai_model"},
		{"missing stages", flow(map[string]any{"stages": nil}), "Missing required field: flow.stages"},
		{"empty stages", flow(map[string]any{"stages": []any{}}), "Stages must be a non-empty array."},
		{"stages not array", flow(map[string]any{"stages": "facts"}), "Stages must be a non-empty array."},
		{"stage not object", flow(map[string]any{"stages": []any{"facts"}}), "Each stage must be an object."},
		{"stage missing description", flow(map[string]any{"stages": []any{map[string]any{"name": "facts"}}}), "Each stage must include name and description."},
		{"stage empty name", flow(map[string]any{"stages": []any{map[string]any{"name": "", "description": "d"}}}), "Each stage must include name and description."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := flows.Validate(tt.raw)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *flows.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", verr.Message, tt.wantMsg)
			}
			if !errors.Is(err, flows.ErrInvalidFlow) {
				t.Error("ValidationError should match ErrInvalidFlow")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	doc, err := flows.Decode([]byte(validFlow), flows.FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if doc.Flow.AgentName != "Nightly summary" || doc.Flow.AIModel != "llama3" || doc.Flow.PrimerText != "Answer in English." {
		t.Errorf("flow = %+v", doc.Flow)
	}
	if len(doc.Flow.Stages) != 2 || doc.Flow.Stages[1] != (flows.FlowStage{Order: 3, Name: "output", Description: "Write the summary"}) {
		t.Errorf("stages = %+v", doc.Flow.Stages)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, format := range []flows.Format{flows.FormatJSON, flows.FormatYAML} {
		_, err := flows.Decode([]byte("{not: [valid"), format)

		var verr *flows.ValidationError
		if !errors.As(err, &verr) || verr.Message != "Invalid JSON format." {
			t.Errorf("%s: Decode() error = %v, want Invalid JSON format.", format, err)
		}
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	doc, err := flows.Decode([]byte(validFlow), flows.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	data, err := flows.Encode(doc, flows.FormatYAML)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	back, err := flows.Decode(data, flows.FormatYAML)
	if err != nil {
		t.Fatalf("Decode(yaml) error = %v\n%s", err, data)
	}
	if back.Flow.TaskTitle != doc.Flow.TaskTitle || len(back.Flow.Stages) != 2 || back.SchemaVersion != flows.SchemaVersion {
		t.Errorf("round trip = %+v", back)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    flows.Format
		wantErr bool
	}{
		{"", flows.FormatJSON, false},
		{"JSON", flows.FormatJSON, false},
		{"yaml", flows.FormatYAML, false},
		{" yml ", flows.FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := flows.ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.input, err)
			}
			if tt.wantErr && !errors.Is(err, flows.ErrUnsupportedFormat) {
				t.Errorf("error = %v, want ErrUnsupportedFormat", err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUniqueName(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		existing []string
		want     string
	}{
		{"free", "Summarizer", []string{"Other"}, "Summarizer"},
		{"taken", "Summarizer", []string{"Summarizer"}, "Summarizer (Imported)"},
		{"imported taken", "Summarizer", []string{"Summarizer", "Summarizer (Imported)"}, "Summarizer (Imported) (1)"},
		{
			"numbered taken",
			"Summarizer",
			[]string{"Summarizer", "Summarizer (Imported)", "Summarizer (Imported) (1)"},
			"Summarizer (Imported) (2)",
		},
		{"blank", "  ", nil, "Imported Flow"},
		{"blank taken", "", []string{"Imported Flow"}, "Imported Flow (Imported)"},
		{"trimmed", " Summarizer ", nil, "Summarizer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flows.UniqueName(tt.base, tt.existing); got != tt.want {
				t.Errorf("UniqueName(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}
