// Package retrieval ranks indexed chunks against a question. Ranking
// is hybrid: vector similarity fused with lexical overlap, an exact
// metadata leg for explicitly named operations, and an MMR pass so the
// final context is diverse rather than eight near-copies of one
// paragraph.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/intent"
	"github.com/docs-agent/backend/internal/metrics"
	"github.com/docs-agent/backend/internal/vector/milvus"
	"github.com/docs-agent/backend/pkg/logger"
)

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter milvus.Filter) ([]milvus.SearchResult, error)
	QueryByFilter(ctx context.Context, filter milvus.Filter) ([]milvus.SearchResult, error)
}

// EmbeddingCache is an optional read-through cache for query vectors.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	SetEmbedding(ctx context.Context, text string, embedding []float32)
}

type Config struct {
	Candidates int
	Final      int
	FetchK     int
	MMRLambda  float64
	Alpha      float64
}

type Engine struct {
	embedder Embedder
	store    VectorStore
	cache    EmbeddingCache
	cfg      Config
}

func NewEngine(embedder Embedder, store VectorStore, cache EmbeddingCache, cfg Config) *Engine {
	if cfg.Candidates <= 0 {
		cfg.Candidates = 24
	}
	if cfg.Final <= 0 {
		cfg.Final = 8
	}
	if cfg.FetchK <= 0 {
		cfg.FetchK = 20
	}
	if cfg.MMRLambda <= 0 {
		cfg.MMRLambda = 0.7
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = 0.5
	}
	return &Engine{
		embedder: embedder,
		store:    store,
		cache:    cache,
		cfg:      cfg,
	}
}

// Retrieve returns the best chunks for the question, most useful
// first. op narrows the search when the question names an operation
// explicitly.
func (e *Engine) Retrieve(ctx context.Context, question string, op *intent.Operation) ([]milvus.SearchResult, error) {
	queryTokens := tokenize(question)

	filter := milvus.Filter{}
	if op != nil {
		filter.HTTPMethod = op.Method
		filter.Endpoint = op.Path
	}

	byID := make(map[string]scored)

	for _, query := range expandQueries(question) {
		vec, err := e.embedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		hits, err := e.store.Search(ctx, vec, e.cfg.Candidates, filter)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		for _, h := range hits {
			s := e.cfg.Alpha*relevance(h.Score) + (1-e.cfg.Alpha)*queryOverlap(queryTokens, h.Content)
			if prev, ok := byID[h.ChunkID]; !ok || s > prev.score {
				byID[h.ChunkID] = scored{result: h, score: s}
			}
		}
	}

	// exact-metadata leg catches operation chunks vector search missed
	if filter.HTTPMethod != "" || filter.Endpoint != "" {
		exact, err := e.store.QueryByFilter(ctx, filter)
		if err != nil {
			logger.Warn("Scalar retrieval leg failed", zap.Error(err))
		} else {
			for _, h := range exact {
				if _, ok := byID[h.ChunkID]; !ok {
					byID[h.ChunkID] = scored{
						result: h,
						score:  e.cfg.Alpha + (1-e.cfg.Alpha)*queryOverlap(queryTokens, h.Content),
					}
				}
			}
		}
	}

	candidates := make([]scored, 0, len(byID))
	for _, s := range byID {
		candidates = append(candidates, s)
	}
	sortScored(candidates)

	// bound the MMR pool: reranking is quadratic in pool size
	if len(candidates) > e.cfg.FetchK {
		candidates = candidates[:e.cfg.FetchK]
	}

	final := rerankMMR(candidates, e.cfg.MMRLambda, e.cfg.Final)

	metrics.RetrievalResultsCount.Observe(float64(len(final)))
	logger.Debug("Retrieval completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("final", len(final)),
	)

	return final, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if e.cache != nil {
		if vec, ok := e.cache.GetEmbedding(ctx, query); ok {
			return vec, nil
		}
	}
	vec, err := e.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.SetEmbedding(ctx, query, vec)
	}
	return vec, nil
}

// expandQueries adds API-flavored variants of the question so short
// questions still reach the right vocabulary. At most three queries
// run to bound embedding cost.
func expandQueries(question string) []string {
	queries := []string{question}
	q := strings.ToLower(question)

	if strings.Contains(q, "api") || strings.Contains(q, "endpoint") || strings.Contains(q, "request") {
		queries = append(queries, "REST API "+question, "HTTP "+question)
	}
	switch {
	case strings.Contains(q, "get"):
		queries = append(queries, strings.ReplaceAll(q, "get", "retrieve fetch"))
	case strings.Contains(q, "post"):
		queries = append(queries, strings.ReplaceAll(q, "post", "create add"))
	case strings.Contains(q, "put"):
		queries = append(queries, strings.ReplaceAll(q, "put", "update modify"))
	case strings.Contains(q, "delete"):
		queries = append(queries, strings.ReplaceAll(q, "delete", "remove"))
	}

	if len(queries) > 3 {
		queries = queries[:3]
	}
	return queries
}

// FormatContext renders retrieved chunks as the CONTEXT block for the
// completion prompt, with source breadcrumbs for citations.
func FormatContext(results []milvus.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		label := r.Title
		if r.SectionPath != "" {
			if label != "" {
				label += " > "
			}
			label += r.SectionPath
		}
		if label != "" {
			fmt.Fprintf(&b, "[%s]\n", label)
		}
		b.WriteString(r.Content)
	}
	return b.String()
}
