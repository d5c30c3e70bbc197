package medical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NotProvided marks a patient field that is genuinely unknown.
const NotProvided = "Not provided"

// maxAgeYears bounds numeric ages; larger values are kept as raw text.
const maxAgeYears = 150

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// PatientIdentification always carries all six fields once normalized.
type PatientIdentification struct {
	Name                 string `json:"name"`
	Age                  Age    `json:"age"`
	IdentificationNumber string `json:"identification_number"`
	Gender               string `json:"gender"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
}

type MedicalExtraction struct {
	Symptoms              []string              `json:"symptoms"`
	PatientInfo           PatientIdentification `json:"patient_info"`
	ReasonForConsultation string                `json:"reason_for_consultation"`
}

// DiagnosisResult is owned by the reasoning service; the core only checks it is not blank.
type DiagnosisResult struct {
	Diagnosis       string `json:"diagnosis"`
	TreatmentPlan   string `json:"treatment_plan"`
	Recommendations string `json:"recommendations"`
}

func (d DiagnosisResult) IsEmpty() bool {
	return strings.TrimSpace(d.Diagnosis) == ""
}

// Age is an age in years or NotProvided. Values the model returns that are
// neither are kept verbatim so validation can report them.
type Age struct {
	years int
	known bool
	raw   string
}

func AgeOf(years int) Age {
	return Age{years: years, known: true}
}

func (a Age) Years() (int, bool) {
	return a.years, a.known
}

func (a Age) IsProvided() bool {
	return a.known
}

// Invalid returns the unparseable text the age was decoded from, if any.
func (a Age) Invalid() string {
	return a.raw
}

func (a Age) String() string {
	switch {
	case a.known:
		return strconv.Itoa(a.years)
	case a.raw != "":
		return a.raw
	default:
		return NotProvided
	}
}

func (a Age) MarshalJSON() ([]byte, error) {
	if a.known {
		return []byte(strconv.Itoa(a.years)), nil
	}
	return json.Marshal(a.String())
}

var ageTextPattern = regexp.MustCompile(`^(-?\d{1,3})(\s*(years?|yrs?|y/?o)(\s+old)?)?$`)

func (a *Age) UnmarshalJSON(data []byte) error {
	*a = Age{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode age: %w", err)
		}
		*a = ParseAge(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode age: %w", err)
	}
	if n != math.Trunc(n) || math.Abs(n) > maxAgeYears {
		a.raw = strconv.FormatFloat(n, 'g', -1, 64)
		return nil
	}
	*a = AgeOf(int(n))
	return nil
}

// ParseAge reads free-text ages such as "28", "28 years old" or "Not provided".
func ParseAge(s string) Age {
	s = strings.ToLower(strings.TrimSpace(s))
	if isMissingValue(s) {
		return Age{}
	}
	m := ageTextPattern.FindStringSubmatch(s)
	if m == nil {
		return Age{raw: strings.TrimSpace(s)}
	}
	years, err := strconv.Atoi(m[1])
	if err != nil || years > maxAgeYears || years < -maxAgeYears {
		return Age{raw: s}
	}
	return AgeOf(years)
}

var missingValues = map[string]struct{}{
	"":               {},
	"null":           {},
	"none":           {},
	"n/a":            {},
	"na":             {},
	"unknown":        {},
	"not provided":   {},
	"not mentioned":  {},
	"not specified":  {},
	"not available":  {},
	"not applicable": {},
}

func isMissingValue(s string) bool {
	_, ok := missingValues[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
