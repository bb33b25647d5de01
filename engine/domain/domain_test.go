package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldPresent(t *testing.T) {
	for _, v := range []string{"", "Unknown", "unknown", "  UNKNOWN  ", "Not specified", "N/A", "none"} {
		if FieldPresent(v) {
			t.Fatalf("%q should be absent", v)
		}
	}
	for _, v := range []string{"2024-03-01", "CAN bus flooding", "0"} {
		if !FieldPresent(v) {
			t.Fatalf("%q should be present", v)
		}
	}
}

func TestExtractedFieldsPresent(t *testing.T) {
	f := ExtractedFields{
		Who:    "external attacker",
		What:   "telematics intrusion",
		Where:  Absent,
		When:   "2024-03-01",
		Impact: Absent,
		Status: "contained",
	}
	if !f.Present(FieldWho) || !f.Present(FieldWhen) {
		t.Fatal("extracted values should be present")
	}
	if f.Present(FieldWhere) || f.Present(FieldImpact) {
		t.Fatal("absent markers should not be present")
	}
	if f.Get(Field("BOGUS")) != "" {
		t.Fatal("unknown field should return empty")
	}
}

func TestMissingCritical(t *testing.T) {
	f := ExtractedFields{When: Absent, Impact: "fleet-wide outage"}
	missing := f.MissingCritical()
	if len(missing) != 1 || missing[0] != FieldWhen {
		t.Fatalf("missing = %v, want [WHEN]", missing)
	}

	f = ExtractedFields{When: "yesterday", Impact: "minor"}
	if len(f.MissingCritical()) != 0 {
		t.Fatal("nothing critical should be missing")
	}

	f = ExtractedFields{}
	if len(f.MissingCritical()) != 2 {
		t.Fatal("both critical fields should be missing")
	}
}

func TestValidateReport(t *testing.T) {
	if err := ValidateReport(IncidentReport{ID: "x", Text: "   "}); !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("blank report: got %v", err)
	}
	if err := ValidateReport(IncidentReport{ID: "x", Text: "short"}); !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("tiny report: got %v", err)
	}
	big := strings.Repeat("a", MaxReportLen+1)
	if err := ValidateReport(IncidentReport{ID: "x", Text: big}); !errors.Is(err, ErrReportTooBig) {
		t.Fatalf("oversized report: got %v", err)
	}
	if err := ValidateReport(IncidentReport{ID: "x", Text: "a perfectly normal incident report"}); err != nil {
		t.Fatalf("valid report rejected: %v", err)
	}
}

func TestValidateParsedReport(t *testing.T) {
	p := ParsedReport{Sections: map[SectionType]string{SectionDescription: "text"}}
	if err := ValidateParsedReport(p); !errors.Is(err, ErrIngestionParse) {
		t.Fatal("missing incident id should fail")
	}

	p = ParsedReport{Meta: ReportMetadata{IncidentID: "INC-1"}, Sections: map[SectionType]string{}}
	if err := ValidateParsedReport(p); !errors.Is(err, ErrIngestionParse) {
		t.Fatal("no sections should fail")
	}

	p = ParsedReport{
		Meta:     ReportMetadata{IncidentID: "INC-1"},
		Sections: map[SectionType]string{SectionType("bogus"): "text"},
	}
	if err := ValidateParsedReport(p); !errors.Is(err, ErrIngestionParse) {
		t.Fatal("unknown section type should fail")
	}

	p = ParsedReport{
		Meta:     ReportMetadata{IncidentID: "INC-1"},
		Sections: map[SectionType]string{SectionDescription: "text"},
	}
	if err := ValidateParsedReport(p); err != nil {
		t.Fatalf("valid parsed report rejected: %v", err)
	}
}

func TestPresentSections(t *testing.T) {
	p := ParsedReport{Sections: map[SectionType]string{
		SectionRecommendations: "r",
		SectionDescription:     "d",
	}}
	got := p.PresentSections()
	if len(got) != 2 || got[0] != SectionDescription || got[1] != SectionRecommendations {
		t.Fatalf("sections out of canonical order: %v", got)
	}
}

func TestStepError(t *testing.T) {
	inner := ErrGeneration
	err := NewStepError("COMPLETE_SUMMARY", PathComplete, inner)
	if !errors.Is(err, ErrGeneration) {
		t.Fatal("StepError should unwrap to the cause")
	}
	if !strings.Contains(err.Error(), "COMPLETE_SUMMARY") {
		t.Fatalf("error should name the state: %v", err)
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("text", "", ErrEmptyReport)
	if !errors.Is(err, ErrEmptyReport) {
		t.Fatal("ValidationError should unwrap")
	}
}
