// Package ingest loads historical incident reports into the vector index:
// parse into sections, build cross-section payloads, embed each section,
// and upsert one record per section into the matching namespace.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
	"github.com/VSOCLabs/copilot-mvp/engine/report"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
	"github.com/VSOCLabs/copilot-mvp/pkg/fn"
	"github.com/VSOCLabs/copilot-mvp/pkg/resilience"
)

// VectorIndex abstracts the per-namespace upsert operation of the store.
type VectorIndex interface {
	Upsert(ctx context.Context, ns domain.SectionType, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder llm.Embedder
	Index    VectorIndex
	// Limiter paces embedding calls; nil disables pacing.
	Limiter *resilience.Limiter
	Logger  *slog.Logger
}

// embedRetry bounds transient embedding failures. Short waits: a whole
// batch stalls behind each retry.
var embedRetry = fn.RetryOpts{
	MaxAttempts: 3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     5 * time.Second,
	Jitter:      true,
}

// --- Pipeline stages ---

// Parse converts a SourceDoc into a ParsedReport via the section parser.
var Parse fn.Stage[SourceDoc, domain.ParsedReport] = func(_ context.Context, doc SourceDoc) fn.Result[domain.ParsedReport] {
	return fn.FromPair(report.Parse(doc.Text, doc.Name))
}

// NewEmbed creates a stage that embeds every present section in one batch
// call, rate-limited when a limiter is configured.
func NewEmbed(embedder llm.Embedder, limiter *resilience.Limiter) fn.Stage[domain.ParsedReport, EmbeddedDoc] {
	return func(ctx context.Context, parsed domain.ParsedReport) fn.Result[EmbeddedDoc] {
		sections := parsed.PresentSections()
		texts := fn.Map(sections, func(st domain.SectionType) string {
			return parsed.Sections[st]
		})

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fn.Err[EmbeddedDoc](err)
			}
		}

		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fn.Err[EmbeddedDoc](fmt.Errorf("embed sections: %w", err))
		}

		embeddings := make(map[domain.SectionType][]float32, len(sections))
		for i, st := range sections {
			embeddings[st] = vecs[i]
		}
		return fn.Ok(EmbeddedDoc{Report: parsed, Embeddings: embeddings})
	}
}

// NewStore creates a stage that upserts one record per section into the
// namespace matching that section's name.
func NewStore(index VectorIndex) fn.Stage[EmbeddedDoc, StoredDoc] {
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[StoredDoc] {
		records := BuildRecords(doc.Report, doc.Embeddings)
		stored := StoredDoc{IncidentID: doc.Report.Meta.IncidentID}
		for _, ns := range domain.SectionTypes {
			recs, ok := records[ns]
			if !ok {
				continue
			}
			if err := index.Upsert(ctx, ns, recs); err != nil {
				return fn.Err[StoredDoc](fmt.Errorf("vector upsert %s: %w", ns, err))
			}
			stored.Sections = append(stored.Sections, ns)
		}
		return fn.Ok(stored)
	}
}

// BuildRecords converts an embedded report into per-namespace vector
// records. Every record of one incident carries the identical cross-section
// payload: the full text of each present section keyed by section name.
// Point ids are deterministic in (incident id, section), so re-ingestion
// overwrites rather than duplicates.
func BuildRecords(parsed domain.ParsedReport, embeddings map[domain.SectionType][]float32) map[domain.SectionType][]semantic.VectorRecord {
	meta := parsed.Meta

	base := map[string]any{
		semantic.KeySource:     "incident_report",
		semantic.KeyIncidentID: meta.IncidentID,
	}
	addIf := func(k, v string) {
		if v != "" {
			base[k] = v
		}
	}
	addIf("file_name", meta.FileName)
	addIf("date_of_detection", meta.DateOfDetection)
	addIf("year", meta.Year)
	addIf("month", meta.Month)
	addIf("vehicle_id", meta.VehicleID)
	addIf("vehicle_note", meta.VehicleNote)
	addIf("fleet", meta.Fleet)
	addIf("threat_category", meta.ThreatCategory)
	addIf("detection_method", meta.DetectionMethod)
	addIf("severity", meta.Severity)
	addIf("status", meta.Status)

	// Cross-section links, built once so all records stay identical.
	for st, text := range parsed.Sections {
		base[semantic.CrossSectionKey(string(st))] = text
	}

	out := make(map[domain.SectionType][]semantic.VectorRecord, len(parsed.Sections))
	for st, text := range parsed.Sections {
		payload := make(map[string]any, len(base)+2)
		for k, v := range base {
			payload[k] = v
		}
		payload[semantic.KeyText] = text
		payload[semantic.KeySectionType] = string(st)

		out[st] = []semantic.VectorRecord{{
			ID:        semantic.PointID(meta.IncidentID, st),
			Embedding: embeddings[st],
			Payload:   payload,
		}}
	}
	return out
}

// LoggedTap returns a stage that logs entry/exit around the wrapped value.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return fn.TapStage(func(_ context.Context, _ T) {
		log.Debug("stage", "name", name)
	})
}

// NewPipeline composes Parse → Embed → Store with tracing.
func NewPipeline(deps Deps) fn.Stage[SourceDoc, StoredDoc] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	parse := fn.TracedStage("ingest.parse", Parse)
	embed := fn.TracedStage("ingest.embed", fn.RetryStage(embedRetry, NewEmbed(deps.Embedder, deps.Limiter)))
	store := fn.TracedStage("ingest.store", NewStore(deps.Index))

	parsed := fn.Then(fn.Then(LoggedTap[SourceDoc]("parse", log), parse), LoggedTap[domain.ParsedReport]("embed", log))
	embedded := fn.Then(fn.Then(parsed, embed), LoggedTap[EmbeddedDoc]("store", log))
	return fn.Then(embedded, store)
}

// Ingester runs the pipeline over a document corpus.
type Ingester struct {
	pipeline fn.Stage[SourceDoc, StoredDoc]
	log      *slog.Logger
}

// New creates an Ingester.
func New(deps Deps) *Ingester {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{pipeline: NewPipeline(deps), log: log}
}

// IngestDoc runs a single document through the pipeline, returning the
// incident id it was stored under.
func (ing *Ingester) IngestDoc(ctx context.Context, doc SourceDoc) (string, error) {
	stored, err := ing.run(ctx, doc)
	return stored.IncidentID, err
}

func (ing *Ingester) run(ctx context.Context, doc SourceDoc) (StoredDoc, error) {
	return ing.pipeline(ctx, doc).Unwrap()
}

// IngestDir loads every file matching pattern under dir and runs each
// through the pipeline. Malformed documents are skipped and counted, never
// aborting the batch; the returned stats list each skip with its reason.
func (ing *Ingester) IngestDir(ctx context.Context, dir, pattern string) (Stats, error) {
	if pattern == "" {
		pattern = "*.txt"
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return Stats{}, fmt.Errorf("ingest: glob %s: %w", pattern, err)
	}
	sort.Strings(files)

	stats := Stats{PerNamespace: make(map[domain.SectionType]int)}
	for _, path := range files {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Files++

		data, err := os.ReadFile(path)
		if err != nil {
			stats.skip(filepath.Base(path), err.Error())
			ing.log.Warn("ingest: read failed", "file", path, "error", err)
			continue
		}

		doc := SourceDoc{Name: filepath.Base(path), Text: string(data)}
		stored, err := ing.run(ctx, doc)
		if err != nil {
			stats.skip(doc.Name, err.Error())
			ing.log.Warn("ingest: pipeline failed", "file", doc.Name, "error", err)
			continue
		}

		for _, st := range stored.Sections {
			stats.PerNamespace[st]++
			stats.Ingested++
		}
		ing.log.Info("ingest: stored", "incident_id", stored.IncidentID, "sections", len(stored.Sections))
	}
	return stats, nil
}

func (s *Stats) skip(name, reason string) {
	s.Skipped++
	s.SkippedDocs = append(s.SkippedDocs, SkippedDoc{Name: name, Reason: reason})
}
