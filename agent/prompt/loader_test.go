package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, tool := range []string{"extract_medical_information", "generate_diagnosis", "validate_medical_extraction"} {
		if !strings.Contains(set.Medical, tool) {
			t.Fatalf("medical prompt does not mention %s", tool)
		}
	}
	if !strings.Contains(set.Router, "off_topic") {
		t.Fatal("router prompt must name the off_topic route")
	}
}

func TestPromptSetValidate(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	set.Diagnose = " "
	if err := set.Validate(); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}

	set = LoadPromptSet()
	set.Router = "route {input}"
	if err := set.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
