package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readExtraction decodes a MedicalExtraction from path, or from stdin when
// path is empty or "-".
func readExtraction(cmd *cobra.Command, path string) (medicalx.MedicalExtraction, error) {
	var r io.Reader = cmd.InOrStdin()
	if p := strings.TrimSpace(path); p != "" && p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return medicalx.MedicalExtraction{}, fmt.Errorf("open extraction: %w", err)
		}
		defer f.Close()
		r = f
	}

	var extraction medicalx.MedicalExtraction
	if err := json.NewDecoder(r).Decode(&extraction); err != nil {
		return medicalx.MedicalExtraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	return extraction, nil
}
