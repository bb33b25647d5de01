package copilot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
	"github.com/VSOCLabs/copilot-mvp/pkg/resilience"
)

// Searcher abstracts the vector index query operation.
type Searcher interface {
	Query(ctx context.Context, ns domain.SectionType, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Retriever finds historical incidents similar to the current report's
// description and joins each hit with its resolution text via the
// cross-section payload. Retrieval is an enhancement, never a hard
// dependency: any failure (embed error, index unreachable, timeout, open
// breaker) degrades to an empty match list.
type Retriever struct {
	embed   llm.Embedder
	search  Searcher
	breaker *resilience.Breaker
	topK    int
	timeout time.Duration
	log     *slog.Logger
}

// NewRetriever creates a Retriever. topK <= 0 defaults to 3.
func NewRetriever(embed llm.Embedder, search Searcher, topK int, timeout time.Duration, log *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		embed:   embed,
		search:  search,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		topK:    topK,
		timeout: timeout,
		log:     log,
	}
}

// Retrieve queries the description namespace only. Matches come back
// de-duplicated by incident id, ordered by descending similarity with ties
// broken by ascending incident id.
func (r *Retriever) Retrieve(ctx context.Context, description string) []domain.RetrievalMatch {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embed.EmbedOne(ctx, description)
	if err != nil {
		r.log.Warn("retriever: embed failed, continuing without examples", "error", err)
		return nil
	}

	var results []semantic.SearchResult
	err = r.breaker.Call(ctx, func(ctx context.Context) error {
		var qerr error
		results, qerr = r.search.Query(ctx, domain.SectionDescription, vec, r.topK)
		return qerr
	})
	if err != nil {
		r.log.Warn("retriever: index query failed, continuing without examples", "error", err)
		return nil
	}

	matches := linkMatches(results)
	r.log.Info("retriever: done", "matches", len(matches))
	return matches
}

// linkMatches converts raw hits into retrieval matches with the linked
// recommendations text, de-duplicated by incident id (best score wins).
func linkMatches(results []semantic.SearchResult) []domain.RetrievalMatch {
	byID := make(map[string]domain.RetrievalMatch)
	for _, res := range results {
		if res.IncidentID == "" {
			continue
		}
		m := domain.RetrievalMatch{
			IncidentID:      res.IncidentID,
			Description:     res.Text,
			Recommendations: res.Section(string(domain.SectionRecommendations)),
			ThreatCategory:  res.Meta["threat_category"],
			Score:           res.Score,
			Namespace:       domain.SectionDescription,
			Meta:            res.Meta,
		}
		if prev, ok := byID[res.IncidentID]; !ok || m.Score > prev.Score {
			byID[res.IncidentID] = m
		}
	}

	matches := make([]domain.RetrievalMatch, 0, len(byID))
	for _, m := range byID {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].IncidentID < matches[j].IncidentID
	})
	return matches
}
