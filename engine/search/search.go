package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/pkg/metrics"
	"github.com/VegaMotors/vegamotors-engine/pkg/resilience"
)

// Embedder produces an embedding for a query string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher runs a k-NN query over the search index.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
}

// Service answers free-text queries over the on-sale catalog. The semantic
// path (embed + vector search) sits behind a circuit breaker; on any
// failure the query degrades to a lexical scan, never to an error. The
// breaker is acceptable here, unlike on the catalog path, because the
// lexical fallback serves the same vehicles.
type Service struct {
	store   *catalog.Store
	embed   Embedder
	vectors VectorSearcher
	breaker *resilience.Breaker
	log     *slog.Logger

	lexicalFallbacks *metrics.Counter
}

// New creates a search Service. embed and vectors may be nil when the
// vector stack is unconfigured; every query is then lexical.
func New(store *catalog.Store, embed Embedder, vectors VectorSearcher, log *slog.Logger, reg *metrics.Registry) *Service {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Service{
		store:            store,
		embed:            embed,
		vectors:          vectors,
		breaker:          resilience.NewBreaker(resilience.DefaultBreakerOpts),
		log:              log,
		lexicalFallbacks: reg.Counter("search_lexical_fallback_total", "Queries answered by the lexical scan"),
	}
}

// Search returns up to limit on-sale vehicles matching the query.
func (s *Service) Search(ctx context.Context, query string, limit int) []catalog.Vehicle {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil
	}

	if s.embed != nil && s.vectors != nil {
		if vehicles, err := s.semantic(ctx, query, limit); err == nil {
			return vehicles
		} else if !errors.Is(err, resilience.ErrCircuitOpen) {
			s.log.Warn("semantic search unavailable", "err", err)
		}
	}

	s.lexicalFallbacks.Inc()
	return s.lexical(ctx, query, limit)
}

func (s *Service) semantic(ctx context.Context, query string, limit int) ([]catalog.Vehicle, error) {
	var hits []Hit
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		embedding, err := s.embed.Embed(ctx, query)
		if err != nil {
			return err
		}
		// Over-fetch: hits for off-sale vehicles are discarded below.
		hits, err = s.vectors.Search(ctx, embedding, limit*2)
		return err
	})
	if err != nil {
		return nil, err
	}

	var out []catalog.Vehicle
	for _, h := range hits {
		v, ok := s.store.GetByID(ctx, h.VehicleID)
		if !ok || !v.OnSale {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// lexical is the degraded path: case- and accent-insensitive substring
// match over title, brand, model, and description. Every query term must
// match somewhere.
func (s *Service) lexical(ctx context.Context, query string, limit int) []catalog.Vehicle {
	terms := strings.Fields(catalog.Fold(query))
	if len(terms) == 0 {
		return nil
	}

	var out []catalog.Vehicle
	for _, v := range s.store.ListOnSale(ctx) {
		haystack := catalog.Fold(v.Title + " " + v.Brand + " " + v.Model + " " + v.Description)
		matched := true
		for _, t := range terms {
			if !strings.Contains(haystack, t) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, v)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
