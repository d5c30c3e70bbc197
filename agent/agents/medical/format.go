package medical

import (
	"fmt"
	"strings"

	medicalx "github.com/tanpawarit/clinical-intake-orchestrator/agent/medical"
)

const (
	apologyMessage = "I'm sorry, I could not complete the medical analysis right now. " +
		"Please describe your symptoms again, or try again in a moment."
	analysisUnavailable = "A preliminary analysis is not available right now. " +
		"Please consult a healthcare professional about these symptoms."
	disclaimer = "_This is not a substitute for an in-person consultation with a licensed clinician. " +
		"Seek urgent care if your symptoms are severe or getting worse._"
)

// FormatAnswer renders whatever the turn produced without the model.
func FormatAnswer(extraction *medicalx.MedicalExtraction, diagnosis *medicalx.DiagnosisResult, degraded bool) string {
	if extraction == nil && diagnosis == nil {
		return apologyMessage
	}

	var b strings.Builder
	if extraction != nil {
		p := extraction.PatientInfo
		b.WriteString("## EXTRACTED INFORMATION\n\n")
		fmt.Fprintf(&b, "**Symptoms:** %s\n", symptomList(extraction.Symptoms))
		fmt.Fprintf(&b, "**Name:** %s\n", orSentinel(p.Name))
		fmt.Fprintf(&b, "**Age:** %s\n", p.Age.String())
		fmt.Fprintf(&b, "**Gender:** %s\n", orSentinel(p.Gender))
		fmt.Fprintf(&b, "**Identification number:** %s\n", orSentinel(p.IdentificationNumber))
		fmt.Fprintf(&b, "**Phone:** %s\n", orSentinel(p.Phone))
		fmt.Fprintf(&b, "**Address:** %s\n", orSentinel(p.Address))
		fmt.Fprintf(&b, "**Reason for consultation:** %s\n\n", orSentinel(extraction.ReasonForConsultation))
	}

	b.WriteString("## MEDICAL ANALYSIS\n\n")
	if diagnosis != nil && !diagnosis.IsEmpty() {
		fmt.Fprintf(&b, "**Diagnosis:** %s\n", diagnosis.Diagnosis)
		if v := strings.TrimSpace(diagnosis.TreatmentPlan); v != "" {
			fmt.Fprintf(&b, "**Treatment plan:** %s\n", v)
		}
		if v := strings.TrimSpace(diagnosis.Recommendations); v != "" {
			fmt.Fprintf(&b, "**Recommendations:** %s\n", v)
		}
	} else {
		b.WriteString(analysisUnavailable + "\n")
	}

	if degraded {
		b.WriteString("\nSome steps of the analysis could not be completed, so this answer may be incomplete.\n")
	}
	b.WriteString("\n" + disclaimer)
	return b.String()
}

func symptomList(symptoms []string) string {
	if len(symptoms) == 0 {
		return medicalx.NotProvided
	}
	return strings.Join(symptoms, ", ")
}

func orSentinel(v string) string {
	if strings.TrimSpace(v) == "" {
		return medicalx.NotProvided
	}
	return v
}
