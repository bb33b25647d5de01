// Package semantic is the sole owner of all Qdrant operations for the
// incident index. The index is partitioned into one collection per report
// section ("namespace"); cross-namespace queries are never issued.
package semantic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// Store manages the namespace-partitioned vector index.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	prefix      string
}

// New creates a Store connected to Qdrant at the given gRPC address.
// prefix names the index; each namespace lives in "<prefix>_<section>".
func New(addr, prefix string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		prefix:      prefix,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// collectionFor maps a namespace onto its collection name.
func (s *Store) collectionFor(ns domain.SectionType) string {
	return s.prefix + "_" + string(ns)
}

// PointID derives the deterministic point id for (incident id, section).
// Re-ingesting the same document therefore overwrites its points.
func PointID(incidentID string, ns domain.SectionType) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(incidentID+"_"+string(ns))).String()
}

// EnsureNamespaces creates any missing per-section collections.
func (s *Store) EnsureNamespaces(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	existing := make(map[string]bool, len(list.GetCollections()))
	for _, c := range list.GetCollections() {
		existing[c.GetName()] = true
	}

	d := uint64(dims)
	for _, ns := range domain.SectionTypes {
		name := s.collectionFor(ns)
		if existing[name] {
			continue
		}
		_, err = s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: name,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     d,
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("semantic: create collection %s: %w", name, err)
		}
	}
	return nil
}

// DropNamespaces deletes all per-section collections. Test/tooling use only.
func (s *Store) DropNamespaces(ctx context.Context) error {
	for _, ns := range domain.SectionTypes {
		name := s.collectionFor(ns)
		if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
			return fmt.Errorf("semantic: delete collection %s: %w", name, err)
		}
	}
	return nil
}

// Upsert stores records into the given namespace. Idempotent per point id.
func (s *Store) Upsert(ctx context.Context, ns domain.SectionType, records []VectorRecord) error {
	if !domain.ValidSectionTypes[ns] {
		return fmt.Errorf("semantic: unknown namespace %q", ns)
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: toPayload(r.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collectionFor(ns),
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points into %s: %w", len(records), ns, err)
	}
	return nil
}

// Query performs k-NN similarity search within one namespace and returns
// ranked results with their payloads.
func (s *Store) Query(ctx context.Context, ns domain.SectionType, embedding []float32, topK int) ([]SearchResult, error) {
	if !domain.ValidSectionTypes[ns] {
		return nil, fmt.Errorf("semantic: unknown namespace %q", ns)
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collectionFor(ns),
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: query %s: %w: %v", ns, domain.ErrIndexUnavailable, err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = fromScoredPoint(r)
	}
	return results, nil
}

// toPayload converts a Go payload map into Qdrant values.
func toPayload(payload map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(payload))
	for k, val := range payload {
		switch tv := val.(type) {
		case string:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			out[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			out[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return out
}

// fromScoredPoint unpacks a scored point into a SearchResult.
func fromScoredPoint(p *pb.ScoredPoint) SearchResult {
	sr := SearchResult{
		ID:    p.GetId().GetUuid(),
		Score: p.GetScore(),
		Meta:  make(map[string]string),
	}
	for k, val := range p.GetPayload() {
		v := val.GetStringValue()
		switch k {
		case KeyText:
			sr.Text = v
		case KeyIncidentID:
			sr.IncidentID = v
		default:
			sr.Meta[k] = v
		}
	}
	return sr
}
