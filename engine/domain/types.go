// Package domain defines core domain types, constants, and validation for the
// copilot engine. It acts as the validation gate at pipeline entry points.
package domain

// SectionType names one of the four fixed sections of an incident report.
// Each section type maps 1:1 onto a vector index namespace.
type SectionType string

const (
	SectionDescription     SectionType = "description"
	SectionImpact          SectionType = "impact"
	SectionResponse        SectionType = "response"
	SectionRecommendations SectionType = "recommendations"
)

// SectionTypes lists the fixed sections in canonical order.
var SectionTypes = []SectionType{
	SectionDescription, SectionImpact, SectionResponse, SectionRecommendations,
}

// ValidSectionTypes is the set of recognised section types.
var ValidSectionTypes = map[SectionType]bool{
	SectionDescription: true, SectionImpact: true,
	SectionResponse: true, SectionRecommendations: true,
}

// Field names one of the 5W1H extraction fields.
type Field string

const (
	FieldWho    Field = "WHO"
	FieldWhat   Field = "WHAT"
	FieldWhere  Field = "WHERE"
	FieldWhen   Field = "WHEN"
	FieldImpact Field = "IMPACT"
	FieldStatus Field = "STATUS"
)

// Fields lists the extraction fields in canonical order.
var Fields = []Field{FieldWho, FieldWhat, FieldWhere, FieldWhen, FieldImpact, FieldStatus}

// CriticalFields are the fields whose absence routes a run to the
// conservative path.
var CriticalFields = []Field{FieldWhen, FieldImpact}

// Absent is the explicit marker for a field the extractor could not find.
// An empty string is never a valid present value.
const Absent = "Unknown"

// IncidentReport is a raw incident report plus a stable identifier.
// Immutable once it enters the workflow or the ingestion pipeline.
type IncidentReport struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ExtractedFields is the 5W1H field set produced once per report by the
// field extractor. CriticalInfoMissing is computed by the extractor at
// creation time and never re-derived downstream.
type ExtractedFields struct {
	Who    string `json:"who"`
	What   string `json:"what"`
	Where  string `json:"where"`
	When   string `json:"when"`
	Impact string `json:"impact"`
	Status string `json:"status"`

	CriticalInfoMissing bool `json:"critical_info_missing"`
}

// Get returns the value of a named field.
func (f ExtractedFields) Get(field Field) string {
	switch field {
	case FieldWho:
		return f.Who
	case FieldWhat:
		return f.What
	case FieldWhere:
		return f.Where
	case FieldWhen:
		return f.When
	case FieldImpact:
		return f.Impact
	case FieldStatus:
		return f.Status
	}
	return ""
}

// Present reports whether a field carries an extracted value rather than
// the absent marker. The check is centralised here so empty string and
// "Unknown"/"Not specified" never conflate with a present value.
func (f ExtractedFields) Present(field Field) bool {
	return FieldPresent(f.Get(field))
}

// MissingCritical enumerates which of the critical fields are absent,
// in canonical order.
func (f ExtractedFields) MissingCritical() []Field {
	var out []Field
	for _, field := range CriticalFields {
		if !f.Present(field) {
			out = append(out, field)
		}
	}
	return out
}

// ReportMetadata is the per-document metadata extracted from an incident
// report header at ingestion time. It rides along in every vector payload.
type ReportMetadata struct {
	IncidentID      string `json:"incident_id"`
	FileName        string `json:"file_name,omitempty"`
	DateOfDetection string `json:"date_of_detection,omitempty"`
	Year            string `json:"year,omitempty"`
	Month           string `json:"month,omitempty"`
	VehicleID       string `json:"vehicle_id,omitempty"`
	VehicleNote     string `json:"vehicle_note,omitempty"`
	Fleet           string `json:"fleet,omitempty"`
	ThreatCategory  string `json:"threat_category,omitempty"`
	DetectionMethod string `json:"detection_method,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Status          string `json:"status,omitempty"`
}

// Section is a named slice of an incident document plus the document's
// metadata.
type Section struct {
	Type SectionType
	Text string
	Meta ReportMetadata
}

// ParsedReport groups the extracted sections of a single incident.
type ParsedReport struct {
	Meta     ReportMetadata
	Sections map[SectionType]string
}

// PresentSections returns the section types found in the report, in
// canonical order.
func (p ParsedReport) PresentSections() []SectionType {
	var out []SectionType
	for _, st := range SectionTypes {
		if _, ok := p.Sections[st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Path identifies the execution branch chosen by the router.
type Path string

const (
	PathConservative Path = "CONSERVATIVE"
	PathComplete     Path = "COMPLETE"
)

// RetrievalMatch is one historical incident surfaced by similarity search,
// joined with its resolution text via cross-section payload metadata.
type RetrievalMatch struct {
	IncidentID      string            `json:"incident_id"`
	Description     string            `json:"description"`
	Recommendations string            `json:"recommendations"`
	ThreatCategory  string            `json:"threat_category,omitempty"`
	Score           float32           `json:"score"`
	Namespace       SectionType       `json:"namespace"`
	Meta            map[string]string `json:"meta,omitempty"`
}

// StructuredResponse is the terminal output of one workflow run.
type StructuredResponse struct {
	Path              Path     `json:"path"`
	Summary           string   `json:"summary"`
	Plan              string   `json:"plan"`
	SourceIncidentIDs []string `json:"source_incident_ids"`
	Rendered          string   `json:"rendered"`
}
