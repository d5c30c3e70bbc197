package medical

import "strings"

// Normalize returns a copy of e where every patient field holds either a real
// value or NotProvided. A missing gender is inferred from the name first.
func Normalize(e MedicalExtraction, genders GenderInferrer) MedicalExtraction {
	out := MedicalExtraction{
		Symptoms:              NormalizeSymptoms(e.Symptoms),
		PatientInfo:           e.PatientInfo,
		ReasonForConsultation: strings.TrimSpace(e.ReasonForConsultation),
	}

	p := &out.PatientInfo
	p.Name = orNotProvided(p.Name)
	p.IdentificationNumber = orNotProvided(p.IdentificationNumber)
	p.Phone = orNotProvided(p.Phone)
	p.Address = orNotProvided(p.Address)

	p.Gender = canonicalGender(p.Gender)
	if p.Gender == NotProvided && p.Name != NotProvided {
		p.Gender = inferSafely(genders, p.Name)
	}
	return out
}

func orNotProvided(v string) string {
	v = strings.TrimSpace(v)
	if isMissingValue(v) {
		return NotProvided
	}
	return v
}

func canonicalGender(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "male", "m", "man", "boy":
		return GenderMale
	case "female", "f", "woman", "girl":
		return GenderFemale
	}
	if isMissingValue(v) {
		return NotProvided
	}
	return v
}

func inferSafely(genders GenderInferrer, name string) (gender string) {
	if genders == nil {
		return NotProvided
	}
	defer func() {
		if recover() != nil {
			gender = NotProvided
		}
	}()
	gender = strings.TrimSpace(genders.InferGender(name))
	if gender == "" {
		return NotProvided
	}
	return gender
}

// NormalizeSymptoms trims symptoms and drops blanks and case-insensitive duplicates.
func NormalizeSymptoms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
