package domain

import "strings"

const (
	// MinReportLen is the minimum raw report length accepted by the workflow.
	MinReportLen = 10
	// MaxReportLen caps raw report size (bytes) at the workflow entry.
	MaxReportLen = 64 * 1024
)

// absentMarkers are the extractor outputs treated as "field not found".
var absentMarkers = map[string]bool{
	"":              true,
	"unknown":       true,
	"not specified": true,
	"n/a":           true,
	"none":          true,
}

// FieldPresent reports whether an extracted value is a real value rather
// than an absent marker.
func FieldPresent(value string) bool {
	return !absentMarkers[strings.ToLower(strings.TrimSpace(value))]
}

// ValidateReport is the gate at the workflow entry point.
func ValidateReport(r IncidentReport) error {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return NewValidationError("text", "", ErrEmptyReport)
	}
	if len(text) < MinReportLen {
		return NewValidationError("text", truncate(text, 32), ErrEmptyReport)
	}
	if len(r.Text) > MaxReportLen {
		return NewValidationError("text", "", ErrReportTooBig)
	}
	return nil
}

// ValidateParsedReport is the gate at the ingestion pipeline entry point.
// A document must yield an incident id and at least one known section.
func ValidateParsedReport(p ParsedReport) error {
	if p.Meta.IncidentID == "" {
		return NewValidationError("incident_id", p.Meta.FileName, ErrIngestionParse)
	}
	if len(p.Sections) == 0 {
		return NewValidationError("sections", p.Meta.IncidentID, ErrIngestionParse)
	}
	for st := range p.Sections {
		if !ValidSectionTypes[st] {
			return NewValidationError("section_type", string(st), ErrIngestionParse)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
