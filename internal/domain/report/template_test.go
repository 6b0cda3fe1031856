package report

import (
	"reflect"
	"testing"
)

func TestForTypeDefaults(t *testing.T) {
	soap := ForType("soap", nil)
	if !reflect.DeepEqual(soap.Keys(), []string{"subjective", "objective", "assessment", "plan"}) {
		t.Errorf("unexpected soap keys: %v", soap.Keys())
	}
	wellness := ForType("wellness", nil)
	if !wellness.Has("preventive_care") {
		t.Errorf("unexpected wellness keys: %v", wellness.Keys())
	}
	procedure := ForType("procedure", nil)
	if !procedure.Has("aftercare") {
		t.Errorf("unexpected procedure keys: %v", procedure.Keys())
	}
}

func TestForTypeConfiguredSOAP(t *testing.T) {
	tpl := ForType("soap", []string{"subjective", "objective", "plan"})
	if !reflect.DeepEqual(tpl.Keys(), []string{"subjective", "objective", "plan"}) {
		t.Errorf("configured keys not honored: %v", tpl.Keys())
	}
	// Wellness ignores the configured list.
	if ForType("wellness", []string{"subjective"}).Has("subjective") {
		t.Error("wellness must keep its own layout")
	}
}

func TestNewTemplateDedupes(t *testing.T) {
	tpl := NewTemplate([]string{"Subjective", "subjective", "", " plan "})
	if !reflect.DeepEqual(tpl.Keys(), []string{"subjective", "plan"}) {
		t.Errorf("unexpected keys: %v", tpl.Keys())
	}
}

func TestNormalizeExactKeySet(t *testing.T) {
	tpl := NewTemplate([]string{"subjective", "objective", "assessment", "plan"})
	got := tpl.Normalize(map[string]string{
		"Subjective":   "owner reports lethargy",
		"objective":    "T 38.5C",
		"differential": "should be dropped",
	})

	if len(got) != 4 {
		t.Fatalf("expected exactly 4 keys, got %v", got)
	}
	if got["subjective"] != "owner reports lethargy" {
		t.Errorf("case-insensitive match failed: %q", got["subjective"])
	}
	if got["assessment"] != "" || got["plan"] != "" {
		t.Error("missing keys must be present and empty")
	}
	if _, ok := got["differential"]; ok {
		t.Error("extraneous key survived normalization")
	}
}

func TestNormalizeSpaceUnderscoreDrift(t *testing.T) {
	tpl := NewTemplate([]string{"physical_exam"})
	got := tpl.Normalize(map[string]string{"Physical Exam": "unremarkable"})
	if got["physical_exam"] != "unremarkable" {
		t.Errorf("space/underscore drift not tolerated: %v", got)
	}
}

func TestTitle(t *testing.T) {
	cases := map[string]string{
		"subjective":               "Subjective",
		"physical_exam":            "Physical Exam",
		"preanesthetic_assessment": "Preanesthetic Assessment",
	}
	for in, want := range cases {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmpty(t *testing.T) {
	tpl := NewTemplate([]string{"a", "b"})
	m := tpl.Empty()
	if len(m) != 2 || m["a"] != "" || m["b"] != "" {
		t.Errorf("unexpected empty map: %v", m)
	}
}
