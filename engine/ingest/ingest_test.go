package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
)

// --- mocks ---

type mockEmbedder struct {
	calls int
	fail  error
}

func (m *mockEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(context.Background(), []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dims() int { return 2 }

type mockIndex struct {
	mu      sync.Mutex
	upserts map[domain.SectionType][]semantic.VectorRecord
	fail    error
}

func newMockIndex() *mockIndex {
	return &mockIndex{upserts: make(map[domain.SectionType][]semantic.VectorRecord)}
}

func (m *mockIndex) Upsert(_ context.Context, ns domain.SectionType, records []semantic.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.upserts[ns] = append(m.upserts[ns], records...)
	return nil
}

// --- fixtures ---

const goodReport = `Incident ID: INC-2024-0001
Date of Detection: 2024-05-02
Threat Category: Telematics Intrusion

Incident Description:
Unauthorized remote session against the telematics backend.

Impact Assessment:
One vehicle reported degraded connectivity.

Lessons Learned:
Rotate backend API credentials quarterly.
`

func testParsed(t *testing.T) domain.ParsedReport {
	t.Helper()
	parsed, err := Parse(context.Background(), SourceDoc{Name: "INC-2024-0001.txt", Text: goodReport}).Unwrap()
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return parsed
}

// --- BuildRecords ---

func TestBuildRecordsCrossSectionPayload(t *testing.T) {
	parsed := testParsed(t)
	embeddings := map[domain.SectionType][]float32{
		domain.SectionDescription:     {1, 0},
		domain.SectionImpact:          {0, 1},
		domain.SectionRecommendations: {1, 1},
	}

	records := BuildRecords(parsed, embeddings)
	if len(records) != 3 {
		t.Fatalf("namespaces = %d, want 3", len(records))
	}

	// Strip the per-record keys; what remains must be byte-for-byte identical
	// across all records of the incident.
	shared := func(ns domain.SectionType) map[string]any {
		rec := records[ns][0]
		out := make(map[string]any)
		for k, v := range rec.Payload {
			if k == semantic.KeyText || k == semantic.KeySectionType {
				continue
			}
			out[k] = v
		}
		return out
	}
	base := shared(domain.SectionDescription)
	for _, ns := range []domain.SectionType{domain.SectionImpact, domain.SectionRecommendations} {
		if !reflect.DeepEqual(base, shared(ns)) {
			t.Fatalf("cross-section payload differs for %s", ns)
		}
	}

	if base[semantic.KeyIncidentID] != "INC-2024-0001" {
		t.Fatalf("incident id = %v", base[semantic.KeyIncidentID])
	}
	if base[semantic.CrossSectionKey("recommendations")] != parsed.Sections[domain.SectionRecommendations] {
		t.Fatal("recommendations cross-link missing")
	}
	if _, ok := base[semantic.CrossSectionKey("response")]; ok {
		t.Fatal("absent section should have no cross-link")
	}

	desc := records[domain.SectionDescription][0]
	if desc.Payload[semantic.KeyText] != parsed.Sections[domain.SectionDescription] {
		t.Fatal("record text should be its own section")
	}
	if desc.Payload[semantic.KeySectionType] != "description" {
		t.Fatalf("section_type = %v", desc.Payload[semantic.KeySectionType])
	}
}

func TestBuildRecordsDeterministicIDs(t *testing.T) {
	parsed := testParsed(t)
	embeddings := map[domain.SectionType][]float32{domain.SectionDescription: {1, 0}}

	a := BuildRecords(parsed, embeddings)
	b := BuildRecords(parsed, embeddings)
	idA := a[domain.SectionDescription][0].ID
	idB := b[domain.SectionDescription][0].ID
	if idA != idB {
		t.Fatal("re-ingestion must produce the same point id")
	}
	if idA != semantic.PointID("INC-2024-0001", domain.SectionDescription) {
		t.Fatal("id should derive from (incident id, section)")
	}
}

// --- pipeline ---

func TestIngestDoc(t *testing.T) {
	index := newMockIndex()
	ing := New(Deps{Embedder: &mockEmbedder{}, Index: index, Logger: slog.Default()})

	id, err := ing.IngestDoc(context.Background(), SourceDoc{Name: "INC-2024-0001.txt", Text: goodReport})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if id != "INC-2024-0001" {
		t.Fatalf("id = %q", id)
	}

	for _, ns := range []domain.SectionType{domain.SectionDescription, domain.SectionImpact, domain.SectionRecommendations} {
		if len(index.upserts[ns]) != 1 {
			t.Fatalf("namespace %s: %d records", ns, len(index.upserts[ns]))
		}
	}
	if len(index.upserts[domain.SectionResponse]) != 0 {
		t.Fatal("absent section should not be upserted")
	}
}

func TestIngestDocReportsStoredSections(t *testing.T) {
	ing := New(Deps{Embedder: &mockEmbedder{}, Index: newMockIndex()})

	stored, err := ing.run(context.Background(), SourceDoc{Name: "INC-2024-0001.txt", Text: goodReport})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	want := []domain.SectionType{domain.SectionDescription, domain.SectionImpact, domain.SectionRecommendations}
	if !reflect.DeepEqual(stored.Sections, want) {
		t.Fatalf("sections = %v, want %v", stored.Sections, want)
	}
}

func TestIngestDocMalformed(t *testing.T) {
	ing := New(Deps{Embedder: &mockEmbedder{}, Index: newMockIndex()})

	_, err := ing.IngestDoc(context.Background(), SourceDoc{Name: "junk.txt", Text: "nothing parseable"})
	if !errors.Is(err, domain.ErrIngestionParse) {
		t.Fatalf("want ErrIngestionParse, got %v", err)
	}
}

func TestIngestDocUpsertFailure(t *testing.T) {
	index := newMockIndex()
	index.fail = errors.New("qdrant down")
	ing := New(Deps{Embedder: &mockEmbedder{}, Index: index})

	if _, err := ing.IngestDoc(context.Background(), SourceDoc{Name: "x.txt", Text: goodReport}); err == nil {
		t.Fatal("upsert failure should surface")
	}
}

func TestIngestDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.txt", goodReport)
	write("b.txt", "completely unstructured noise")
	write("c.txt", `Incident ID: INC-2
Incident Description:
Key fob relay attack observed in a parking structure.
`)

	index := newMockIndex()
	embedder := &mockEmbedder{}
	ing := New(Deps{Embedder: embedder, Index: index, Logger: slog.Default()})

	stats, err := ing.IngestDir(context.Background(), dir, "*.txt")
	if err != nil {
		t.Fatalf("ingest dir: %v", err)
	}

	if stats.Files != 3 {
		t.Fatalf("files = %d", stats.Files)
	}
	if stats.Skipped != 1 || len(stats.SkippedDocs) != 1 || stats.SkippedDocs[0].Name != "b.txt" {
		t.Fatalf("skips = %+v", stats.SkippedDocs)
	}
	// a.txt has three sections, c.txt one.
	if stats.Ingested != 4 {
		t.Fatalf("ingested = %d", stats.Ingested)
	}
	if stats.PerNamespace[domain.SectionDescription] != 2 {
		t.Fatalf("description count = %d", stats.PerNamespace[domain.SectionDescription])
	}
	// One pipeline pass per parseable document.
	if embedder.calls != 2 {
		t.Fatalf("embed calls = %d, want 2", embedder.calls)
	}
}

func TestIngestDirCancelled(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, fmt.Sprintf("r%d.txt", i))
		if err := os.WriteFile(name, []byte(goodReport), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := New(Deps{Embedder: &mockEmbedder{}, Index: newMockIndex()})
	if _, err := ing.IngestDir(ctx, dir, "*.txt"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
