// Package report turns captured raw input into a structured, editable
// clinical report and keeps the working draft synchronized with storage.
package report

import "strings"

// Template is the ordered list of section keys a report type carries.
// Everything downstream iterates the template; no component hard-codes
// section names.
type Template struct {
	keys []string
}

var (
	soapKeys      = []string{"subjective", "objective", "assessment", "plan"}
	wellnessKeys  = []string{"history", "physical_exam", "preventive_care", "recommendations"}
	procedureKeys = []string{"preanesthetic_assessment", "procedure_description", "findings", "recovery", "aftercare"}
)

// NewTemplate builds a template from explicit keys, dropping blanks and
// duplicates while preserving order.
func NewTemplate(keys []string) Template {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		k = canonicalKey(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return Template{keys: out}
}

// ForType returns the template for a report type. SOAP notes use the
// configured section list when one is set; wellness and procedure notes
// carry their own fixed layouts.
func ForType(reportType string, configured []string) Template {
	switch reportType {
	case "wellness":
		return NewTemplate(wellnessKeys)
	case "procedure":
		return NewTemplate(procedureKeys)
	}
	if len(configured) > 0 {
		return NewTemplate(configured)
	}
	return NewTemplate(soapKeys)
}

func (t Template) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Empty returns a section map holding every template key with empty text.
func (t Template) Empty() map[string]string {
	m := make(map[string]string, len(t.keys))
	for _, k := range t.keys {
		m[k] = ""
	}
	return m
}

// Normalize reshapes a loosely-keyed section map to exactly the template
// key set: missing keys become empty sections, extraneous keys are
// dropped, and key matching tolerates case and space/underscore drift.
func (t Template) Normalize(raw map[string]string) map[string]string {
	byCanonical := make(map[string]string, len(raw))
	for k, v := range raw {
		byCanonical[canonicalKey(k)] = v
	}
	out := make(map[string]string, len(t.keys))
	for _, k := range t.keys {
		out[k] = byCanonical[k]
	}
	return out
}

func (t Template) Has(key string) bool {
	key = canonicalKey(key)
	for _, k := range t.keys {
		if k == key {
			return true
		}
	}
	return false
}

func canonicalKey(k string) string {
	k = strings.TrimSpace(strings.ToLower(k))
	return strings.ReplaceAll(k, " ", "_")
}

// Title renders a section key as a display heading, "physical_exam"
// becoming "Physical Exam".
func Title(key string) string {
	words := strings.Split(canonicalKey(key), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
