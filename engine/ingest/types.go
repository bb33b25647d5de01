package ingest

import "github.com/VSOCLabs/copilot-mvp/engine/domain"

// SourceDoc is one raw incident report entering the pipeline, either read
// from disk or delivered over NATS.
type SourceDoc struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// EmbeddedDoc is a parsed report with one embedding per present section.
type EmbeddedDoc struct {
	Report     domain.ParsedReport
	Embeddings map[domain.SectionType][]float32
}

// StoredDoc identifies a document after indexing: the incident id it was
// stored under and the namespaces it was written to, in canonical order.
type StoredDoc struct {
	IncidentID string
	Sections   []domain.SectionType
}

// SkippedDoc records one document dropped during batch ingestion.
type SkippedDoc struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Stats aggregates the outcome of a batch ingestion run.
type Stats struct {
	Files        int                        `json:"files"`
	Ingested     int                        `json:"ingested"`
	Skipped      int                        `json:"skipped"`
	SkippedDocs  []SkippedDoc               `json:"skipped_docs,omitempty"`
	PerNamespace map[domain.SectionType]int `json:"per_namespace"`
}
