package medical

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

// GenderInferrer maps a patient name to GenderMale, GenderFemale or NotProvided.
// Implementations must not panic on unknown input.
type GenderInferrer interface {
	InferGender(name string) string
}

//go:embed names.yaml
var defaultNamesYAML []byte

type nameTableFile struct {
	Male   []string `yaml:"male"`
	Female []string `yaml:"female"`
}

// NameTable is a first-name lookup. Names listed under both genders are
// treated as ambiguous.
type NameTable struct {
	genders map[string]string
}

var _ GenderInferrer = (*NameTable)(nil)

var defaultTable = sync.OnceValue(func() *NameTable {
	t, err := parseNameTable(defaultNamesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded names.yaml: %v", err))
	}
	return t
})

func DefaultNameTable() *NameTable {
	return defaultTable()
}

// InferGender uses the embedded name table.
func InferGender(name string) string {
	return DefaultNameTable().InferGender(name)
}

func LoadNameTable(r io.Reader) (*NameTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read name table: %w", err)
	}
	return parseNameTable(raw)
}

func LoadNameTableFile(path string) (*NameTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open name table: %w", err)
	}
	defer f.Close()
	return LoadNameTable(f)
}

func parseNameTable(raw []byte) (*NameTable, error) {
	var file nameTableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode name table: %w", err)
	}

	t := &NameTable{genders: make(map[string]string, len(file.Male)+len(file.Female))}
	t.add(file.Male, GenderMale)
	t.add(file.Female, GenderFemale)
	return t, nil
}

func (t *NameTable) add(names []string, gender string) {
	for _, n := range names {
		key := nameKey(n)
		if key == "" {
			continue
		}
		if prev, ok := t.genders[key]; ok && prev != gender {
			// unisex
			t.genders[key] = ""
			continue
		}
		t.genders[key] = gender
	}
}

var honorifics = map[string]string{
	"mr":      GenderMale,
	"sr":      GenderMale,
	"mrs":     GenderFemale,
	"ms":      GenderFemale,
	"miss":    GenderFemale,
	"sra":     GenderFemale,
	"srta":    GenderFemale,
	"dr":      "",
	"prof":    "",
	"patient": "",
}

func (t *NameTable) InferGender(name string) string {
	if t == nil || isMissingValue(name) {
		return NotProvided
	}

	hint := ""
	for _, token := range strings.Fields(name) {
		key := nameKey(token)
		if key == "" {
			continue
		}
		if g, ok := honorifics[key]; ok {
			if g != "" {
				hint = g
			}
			continue
		}
		if g, ok := t.genders[key]; ok && g != "" {
			return g
		}
		break
	}

	if hint != "" {
		return hint
	}
	return NotProvided
}

func nameKey(s string) string {
	s = strings.TrimFunc(strings.ToLower(strings.TrimSpace(s)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return s
}
