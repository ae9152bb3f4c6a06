package language

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v2"
)

//go:embed languages.yaml
var defaultTable []byte

// Language is one entry of the language table.
type Language struct {
	// Name is the human-readable language name matched against free-form text (e.g., "Telugu").
	Name string `yaml:"name" json:"name"`
	// Code is the short ISO-like code returned to clients (e.g., "te").
	Code string `yaml:"code" json:"code"`
	// Voice is the BCP-47 voice hint for client-side speech engines (e.g., "te-IN").
	Voice string `yaml:"voice" json:"voice"`
}

// Table is an immutable, insertion-ordered list of known languages.
// It is safe for concurrent use because nothing mutates it after Load returns.
type Table struct {
	languages []Language
	// folded holds the case-folded names, index-aligned with languages.
	folded []string
}

var (
	defaultOnce sync.Once
	defaultInst *Table
)

// Default returns the process-wide table built from the embedded languages.yaml.
// The embedded asset is part of the binary, so a parse failure is a build defect and panics.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Load(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("language: embedded table is invalid: %v", err))
		}
		defaultInst = t
	})
	return defaultInst
}

// Load parses a YAML list of languages. Order is preserved and decides which
// name wins when several names occur in the same input.
func Load(data []byte) (*Table, error) {
	var entries []Language
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse language table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("language table is empty")
	}

	t := &Table{
		languages: make([]Language, 0, len(entries)),
		folded:    make([]string, 0, len(entries)),
	}
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		code := strings.TrimSpace(entry.Code)
		if name == "" || code == "" {
			return nil, fmt.Errorf("language table entry %d: name and code are required", i)
		}
		key := fold(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("language table entry %d: duplicate name %q", i, name)
		}
		seen[key] = struct{}{}

		entry.Name = name
		entry.Code = code
		t.languages = append(t.languages, entry)
		t.folded = append(t.folded, key)
	}
	return t, nil
}

// Resolve returns the first language whose name occurs in text, ignoring case.
func (t *Table) Resolve(text string) (Language, bool) {
	haystack := fold(text)
	for i, name := range t.folded {
		if strings.Contains(haystack, name) {
			return t.languages[i], true
		}
	}
	return Language{}, false
}

// ResolveCode is Resolve reduced to the language code.
func (t *Table) ResolveCode(text string) (string, bool) {
	lang, ok := t.Resolve(text)
	if !ok {
		return "", false
	}
	return lang.Code, true
}

// ByCode looks a language up by its code, ignoring case.
func (t *Table) ByCode(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	for _, lang := range t.languages {
		if strings.EqualFold(lang.Code, code) {
			return lang, true
		}
	}
	return Language{}, false
}

// Describe renders a destination for use in an instruction prompt.
// Known codes become "Telugu (te)"; anything else is returned as given.
func (t *Table) Describe(dest string) string {
	if lang, ok := t.ByCode(dest); ok {
		return fmt.Sprintf("%s (%s)", lang.Name, lang.Code)
	}
	return strings.TrimSpace(dest)
}

// Languages returns a copy of the table in insertion order.
func (t *Table) Languages() []Language {
	out := make([]Language, len(t.languages))
	copy(out, t.languages)
	return out
}

// fold applies Unicode case folding. A Caser is stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
