package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/medical.txt
	medicalRaw string

	//go:embed template/extract.txt
	extractRaw string

	//go:embed template/diagnose.txt
	diagnoseRaw string
)

// PromptSet holds the system prompts for every model-backed role.
// Prompts are used as FString templates and must not contain braces.
type PromptSet struct {
	Router   string
	Medical  string
	Extract  string
	Diagnose string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:   strings.TrimSpace(routerRaw),
		Medical:  strings.TrimSpace(medicalRaw),
		Extract:  strings.TrimSpace(extractRaw),
		Diagnose: strings.TrimSpace(diagnoseRaw),
	}
}

func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"router":   p.Router,
		"medical":  p.Medical,
		"extract":  p.Extract,
		"diagnose": p.Diagnose,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
		if strings.ContainsAny(v, "{}") {
			return fmt.Errorf("%w: %s prompt contains template braces", contractx.ErrValidation, name)
		}
	}
	return nil
}
