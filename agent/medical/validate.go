package medical

import (
	"fmt"
	"strings"
)

type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// Validate is a local schema check. It never calls out and never fails.
func Validate(e MedicalExtraction) ValidationReport {
	issues := make([]string, 0, 4)

	if len(e.Symptoms) == 0 {
		issues = append(issues, "symptoms: at least one symptom is required")
	}
	for i, s := range e.Symptoms {
		if strings.TrimSpace(s) == "" {
			issues = append(issues, fmt.Sprintf("symptoms[%d]: must not be blank", i))
		}
	}

	p := e.PatientInfo
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"identification_number", p.IdentificationNumber},
		{"gender", p.Gender},
		{"phone", p.Phone},
		{"address", p.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			issues = append(issues, fmt.Sprintf("patient_info.%s: field is missing", f.name))
		}
	}

	if raw := p.Age.Invalid(); raw != "" {
		issues = append(issues, fmt.Sprintf("patient_info.age: %q is not a non-negative integer or %q", raw, NotProvided))
	} else if years, ok := p.Age.Years(); ok && years < 0 {
		issues = append(issues, fmt.Sprintf("patient_info.age: %d is negative", years))
	}

	reason := strings.TrimSpace(e.ReasonForConsultation)
	if reason == "" || isMissingValue(reason) {
		issues = append(issues, "reason_for_consultation: must not be empty")
	}

	return ValidationReport{
		Valid:  len(issues) == 0,
		Issues: issues,
	}
}
