package instances

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Run folder layout. Downstream consumers (artifact serving, bundle export)
// depend on these names.
const (
	ArtifactsDir     = "artifacts"
	InputFile        = "00_input_original.txt"
	MasterPromptFile = "00_master_prompt.txt"
	DescriptorFile   = "output_descriptor.json"
)

// FolderPath returns the run folder for an instance under root.
func FolderPath(root string, id uuid.UUID) string {
	return filepath.Join(root, id.String())
}

// StageArtifactName returns the artifact file name for an executed stage,
// e.g. "03_stage_risk_flags_output.txt".
func StageArtifactName(order int, stageType, ext string) string {
	return fmt.Sprintf("%02d_stage_%s_output.%s", order, SafeStageType(stageType), ext)
}

// SafeStageType lowercases a stage type and replaces spaces with underscores.
// An empty type becomes "stage".
func SafeStageType(stageType string) string {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(stageType), " ", "_"))
	if s == "" {
		return "stage"
	}
	return s
}

func bundleKey(id uuid.UUID) string {
	return fmt.Sprintf("runs/%s/bundle.zip", id)
}
