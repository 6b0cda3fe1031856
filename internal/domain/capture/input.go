// Package capture assembles canonical raw input for a consult from the
// three intake channels: live recording, typed notes, and uploaded
// historical records.
package capture

import "strings"

// TypedFields is the structured typed-entry form. Field order here is the
// order the assembled raw input presents them in.
type TypedFields struct {
	Identification   string `json:"identification"`
	Complaint        string `json:"complaint"`
	Vitals           string `json:"vitals"`
	Exam             string `json:"exam"`
	Diagnostics      string `json:"diagnostics"`
	OwnerConstraints string `json:"ownerConstraints"`
}

type labeledField struct {
	label string
	value string
}

func (f TypedFields) ordered() []labeledField {
	return []labeledField{
		{"Identification", f.Identification},
		{"Complaint", f.Complaint},
		{"Vitals", f.Vitals},
		{"Exam Findings", f.Exam},
		{"Diagnostics", f.Diagnostics},
		{"Owner Constraints", f.OwnerConstraints},
	}
}

// BuildRawInput renders typed fields as the canonical raw input. When the
// complaint is the only populated field its text passes through verbatim,
// with no label, so a quick one-box entry reads naturally. Otherwise each
// populated field becomes a "Label: value" block separated by blank lines;
// empty fields are omitted entirely.
func BuildRawInput(fields TypedFields) string {
	var populated []labeledField
	for _, f := range fields.ordered() {
		if strings.TrimSpace(f.value) != "" {
			populated = append(populated, labeledField{f.label, strings.TrimSpace(f.value)})
		}
	}
	if len(populated) == 0 {
		return ""
	}
	if len(populated) == 1 && populated[0].label == "Complaint" {
		return populated[0].value
	}

	blocks := make([]string, 0, len(populated))
	for _, f := range populated {
		blocks = append(blocks, f.label+": "+f.value)
	}
	return strings.Join(blocks, "\n\n")
}
