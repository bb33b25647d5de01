package semantic

// Payload keys shared by ingestion and retrieval.
const (
	KeyText        = "text"
	KeyIncidentID  = "incident_id"
	KeySectionType = "section_type"
	KeySource      = "source"

	// crossSectionPrefix prefixes the side-channel copies of every section's
	// text carried by each vector of the same incident.
	crossSectionPrefix = "section_"
	crossSectionSuffix = "_text"
)

// CrossSectionKey returns the payload key holding the full text of the
// named section, e.g. "section_recommendations_text".
func CrossSectionKey(section string) string {
	return crossSectionPrefix + section + crossSectionSuffix
}

// VectorRecord is a single vector to upsert into one namespace.
// Identity is (incident id, section type), encoded in ID deterministically
// so re-ingestion overwrites instead of duplicating.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any
}

// SearchResult is a single similarity hit with its payload unpacked.
type SearchResult struct {
	ID         string            `json:"id"`
	Score      float32           `json:"score"`
	IncidentID string            `json:"incident_id"`
	Text       string            `json:"text"`
	Meta       map[string]string `json:"meta"`
}

// Section returns the cross-section text carried for the named section,
// or "" if the payload does not have it.
func (r SearchResult) Section(section string) string {
	return r.Meta[CrossSectionKey(section)]
}
