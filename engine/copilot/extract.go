package copilot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// Field extraction response parsing. The generation capability answers in
// a fixed "WHO: ... / WHAT: ..." layout; each field is captured up to the
// next label or end of text.
var fieldPatterns = map[domain.Field]*regexp.Regexp{
	domain.FieldWho:    regexp.MustCompile(`(?s)WHO:\s*(.+?)(?:\nWHAT:|\nWHERE:|\n\n|$)`),
	domain.FieldWhat:   regexp.MustCompile(`(?s)WHAT:\s*(.+?)(?:\nWHERE:|\nWHEN:|\n\n|$)`),
	domain.FieldWhere:  regexp.MustCompile(`(?s)WHERE:\s*(.+?)(?:\nWHEN:|\nIMPACT:|\n\n|$)`),
	domain.FieldWhen:   regexp.MustCompile(`(?s)WHEN:\s*(.+?)(?:\nIMPACT:|\nSTATUS:|\n\n|$)`),
	domain.FieldImpact: regexp.MustCompile(`(?s)IMPACT:\s*(.+?)(?:\nSTATUS:|\n\n|$)`),
	domain.FieldStatus: regexp.MustCompile(`(?s)STATUS:\s*(.+?)(?:\n\n|$)`),
}

// parseExtraction turns an extraction response into ExtractedFields.
// Every field is either a non-empty extracted string or the explicit
// absent marker; CriticalInfoMissing is derived here, once. A response
// with no recognisable label at all fails with ErrExtraction.
func parseExtraction(text string) (domain.ExtractedFields, error) {
	values := make(map[domain.Field]string, len(domain.Fields))
	found := 0
	for field, re := range fieldPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				values[field] = v
				found++
				continue
			}
		}
		values[field] = domain.Absent
	}
	if found == 0 {
		return domain.ExtractedFields{}, fmt.Errorf("no extraction fields in response: %w", domain.ErrExtraction)
	}

	fields := domain.ExtractedFields{
		Who:    values[domain.FieldWho],
		What:   values[domain.FieldWhat],
		Where:  values[domain.FieldWhere],
		When:   values[domain.FieldWhen],
		Impact: values[domain.FieldImpact],
		Status: values[domain.FieldStatus],
	}
	fields.CriticalInfoMissing = !fields.Present(domain.FieldWhen) || !fields.Present(domain.FieldImpact)
	return fields, nil
}

// descriptionMaxLen caps the retrieval query text when falling back to the
// raw report.
const descriptionMaxLen = 500

// descriptionFor picks the text used for similarity retrieval: the
// extracted WHAT when present, else the head of the raw report.
func descriptionFor(report domain.IncidentReport, fields domain.ExtractedFields) string {
	if fields.Present(domain.FieldWhat) {
		return fields.What
	}
	text := strings.TrimSpace(report.Text)
	if len(text) > descriptionMaxLen {
		return text[:descriptionMaxLen]
	}
	return text
}
