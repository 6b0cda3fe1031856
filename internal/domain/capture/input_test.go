package capture

import (
	"strings"
	"testing"
)

func TestBuildRawInputComplaintOnlyIsVerbatim(t *testing.T) {
	raw := BuildRawInput(TypedFields{Complaint: "limping on right hind leg since yesterday"})
	if raw != "limping on right hind leg since yesterday" {
		t.Errorf("expected verbatim complaint, got %q", raw)
	}
	if strings.Contains(raw, ":") {
		t.Error("complaint-only input must carry no label")
	}
}

func TestBuildRawInputMultipleFields(t *testing.T) {
	raw := BuildRawInput(TypedFields{
		Complaint: "vomiting",
		Vitals:    "T 39.1C, HR 120",
		Exam:      "abdomen tense on palpation",
	})

	blocks := strings.Split(raw, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %q", len(blocks), raw)
	}
	want := []string{
		"Complaint: vomiting",
		"Vitals: T 39.1C, HR 120",
		"Exam Findings: abdomen tense on palpation",
	}
	for i, w := range want {
		if blocks[i] != w {
			t.Errorf("block %d = %q, want %q", i, blocks[i], w)
		}
	}
}

func TestBuildRawInputOmitsEmptyFields(t *testing.T) {
	raw := BuildRawInput(TypedFields{
		Identification: "Rex, 4y MN Labrador",
		Complaint:      "annual check",
		Diagnostics:    "   ",
	})
	if strings.Contains(raw, "Diagnostics") {
		t.Errorf("blank field rendered: %q", raw)
	}
	if strings.Contains(raw, "Vitals") || strings.Contains(raw, "Owner Constraints") {
		t.Errorf("absent field rendered: %q", raw)
	}
}

func TestBuildRawInputFieldOrderIsFixed(t *testing.T) {
	raw := BuildRawInput(TypedFields{
		OwnerConstraints: "limited budget",
		Identification:   "Milo, 7y FS DSH",
	})
	idIdx := strings.Index(raw, "Identification")
	ownerIdx := strings.Index(raw, "Owner Constraints")
	if idIdx < 0 || ownerIdx < 0 || idIdx > ownerIdx {
		t.Errorf("fields out of order: %q", raw)
	}
}

func TestBuildRawInputAllEmpty(t *testing.T) {
	if raw := BuildRawInput(TypedFields{}); raw != "" {
		t.Errorf("expected empty raw input, got %q", raw)
	}
}

func TestBuildRawInputComplaintWithOtherFieldGetsLabel(t *testing.T) {
	raw := BuildRawInput(TypedFields{
		Complaint: "coughing",
		Vitals:    "RR 40",
	})
	if !strings.HasPrefix(raw, "Complaint: coughing") {
		t.Errorf("expected labeled complaint, got %q", raw)
	}
}
