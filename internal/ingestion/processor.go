package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/extract"
	"github.com/docs-agent/backend/internal/metrics"
	"github.com/docs-agent/backend/internal/state"
	"github.com/docs-agent/backend/internal/storage/models"
	"github.com/docs-agent/backend/internal/storage/sqlite"
	"github.com/docs-agent/backend/internal/vector/milvus"
	"github.com/docs-agent/backend/pkg/logger"
)

// VectorIndex is the slice of the vector store the processor needs.
type VectorIndex interface {
	Drop(ctx context.Context) error
	EnsureCollection(ctx context.Context) error
	Insert(ctx context.Context, chunks []milvus.DocumentChunk) error
}

type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Recaller runs the LLM extraction pass. Optional: ingestion degrades
// to regex and OpenAPI passes without it.
type Recaller interface {
	RecallEndpoints(ctx context.Context, docText string) (string, error)
}

type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	SetEmbedding(ctx context.Context, text string, embedding []float32)
}

type AnswerInvalidator interface {
	InvalidateAnswers(ctx context.Context) error
}

type Deps struct {
	Segmenter   *Segmenter
	VectorDB    VectorIndex
	Embedder    Embedder
	Recaller    Recaller
	DB          *sqlite.Client
	Cache       EmbeddingCache
	Invalidator AnswerInvalidator
	State       *state.Manager
}

type Processor struct {
	deps Deps
}

func NewProcessor(deps Deps) *Processor {
	if deps.Segmenter == nil {
		deps.Segmenter = NewSegmenter()
	}
	return &Processor{deps: deps}
}

// Result summarizes one completed ingestion for the transport layer.
type Result struct {
	IngestionID   string  `json:"ingestion_id"`
	Title         string  `json:"title"`
	ChunkCount    int     `json:"chunks_count"`
	EndpointCount int     `json:"endpoints_count"`
	CurlCount     int     `json:"curl_examples"`
	BaseURL       string  `json:"base_url"`
	Degraded      bool    `json:"degraded"`
	DBSizeMB      float64 `json:"db_size_mb"`
}

var whitespaceRe = regexp.MustCompile(`[ \t]+`)

// Ingest replaces the current document: segment, extract facts, embed,
// rebuild the vector index, persist, and publish the new snapshot.
// Re-ingesting the same content yields the same state.
func (p *Processor) Ingest(ctx context.Context, title, content string) (*Result, error) {
	started := time.Now()

	if title == "" {
		title = "API Documentation"
	}
	logger.Info("Ingesting document", zap.String("title", title), zap.Int("raw_chars", len(content)))

	text := content
	if looksLikeHTML(content) {
		text = stripHTML(content)
	}
	text = StripFrontMatter(text)
	if strings.TrimSpace(text) == "" {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("document has no usable content")
	}

	chunks := p.deps.Segmenter.Segment(text)
	if len(chunks) == 0 {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("document produced no indexable chunks")
	}

	endpoints, degraded := p.extractEndpoints(ctx, text)
	baseURL := extract.PrimaryBaseURL(text)
	baseURLs := extract.AllBaseURLs(text)
	curls := extract.ExtractCurlExamples(text)

	docs := buildIndexDocs(title, baseURL, chunks, endpoints)

	embeddings, err := p.embedAll(ctx, docs)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i := range docs {
		docs[i].Embedding = embeddings[i]
	}

	// drop-then-rebuild keeps re-ingestion idempotent
	if err := p.deps.VectorDB.Drop(ctx); err != nil {
		logger.Warn("Failed to drop previous collection", zap.Error(err))
	}
	if err := p.deps.VectorDB.EnsureCollection(ctx); err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to prepare collection: %w", err)
	}
	if err := p.deps.VectorDB.Insert(ctx, docs); err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	ingestionID := uuid.New().String()
	dbSizeMB := float64(len(text)) / (1024 * 1024)
	if p.deps.DB != nil {
		p.persist(ingestionID, title, text, chunks, endpoints, curls, baseURL, degraded)
		dbSizeMB = p.deps.DB.DBSizeMB()
	}

	if p.deps.Invalidator != nil {
		if err := p.deps.Invalidator.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}

	p.deps.State.Publish(&state.Snapshot{
		Ready:       true,
		Title:       title,
		RawText:     text,
		Endpoints:   endpoints,
		BaseURL:     baseURL,
		BaseURLs:    baseURLs,
		CurlCount:   len(curls),
		ChunkCount:  len(chunks),
		DBSizeMB:    dbSizeMB,
		Degraded:    degraded,
		LastUpdated: time.Now(),
	})

	metrics.IngestTotal.WithLabelValues("success").Inc()
	metrics.IngestDuration.Observe(time.Since(started).Seconds())
	metrics.ChunksIndexed.Set(float64(len(chunks)))
	metrics.EndpointsExtracted.Set(float64(len(endpoints)))

	logger.Info("Document ingested",
		zap.String("ingestion_id", ingestionID),
		zap.Int("chunks", len(chunks)),
		zap.Int("endpoints", len(endpoints)),
		zap.Int("curl_examples", len(curls)),
		zap.Bool("degraded", degraded),
	)

	return &Result{
		IngestionID:   ingestionID,
		Title:         title,
		ChunkCount:    len(chunks),
		EndpointCount: len(endpoints),
		CurlCount:     len(curls),
		BaseURL:       baseURL,
		Degraded:      degraded,
		DBSizeMB:      dbSizeMB,
	}, nil
}

// Clear drops the vector index and resets the published snapshot.
func (p *Processor) Clear(ctx context.Context) error {
	if err := p.deps.VectorDB.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	if p.deps.Invalidator != nil {
		if err := p.deps.Invalidator.InvalidateAnswers(ctx); err != nil {
			logger.Warn("Failed to invalidate answer cache", zap.Error(err))
		}
	}
	if p.deps.DB != nil {
		if err := p.deps.DB.ClearSessionTurns(""); err != nil {
			logger.Warn("Failed to clear persisted session turns", zap.Error(err))
		}
	}
	p.deps.State.Reset()
	metrics.ChunksIndexed.Set(0)
	metrics.EndpointsExtracted.Set(0)
	logger.Info("Document cleared")
	return nil
}

// extractEndpoints merges the three passes in trust order: regex
// surface forms, then OpenAPI structure, then validated LLM recall.
// A recall failure degrades extraction rather than failing ingestion.
func (p *Processor) extractEndpoints(ctx context.Context, text string) ([]extract.Endpoint, bool) {
	regexEps := extract.ExtractEndpoints(text)
	openapiEps := extract.TryOpenAPI(text)

	var recallEps []extract.Endpoint
	degraded := false
	if p.deps.Recaller != nil {
		raw, err := p.deps.Recaller.RecallEndpoints(ctx, text)
		if err != nil {
			logger.Warn("Endpoint recall pass failed", zap.Error(err))
			degraded = true
		} else {
			recallEps = extract.ValidateAgainst(text, extract.ParseRecall(raw))
		}
	}

	merged := extract.Merge(regexEps, openapiEps, recallEps)
	logger.Debug("Endpoint extraction completed",
		zap.Int("regex", len(regexEps)),
		zap.Int("openapi", len(openapiEps)),
		zap.Int("recall", len(recallEps)),
		zap.Int("merged", len(merged)),
	)
	return merged, degraded
}

// buildIndexDocs assembles everything that goes into the vector index:
// the content chunks, one synthetic doc per endpoint, and the catalog.
func buildIndexDocs(title, baseURL string, chunks []Chunk, endpoints []extract.Endpoint) []milvus.DocumentChunk {
	now := time.Now()
	docID := uuid.New().String()

	docs := make([]milvus.DocumentChunk, 0, len(chunks)+len(endpoints)+1)
	for _, ch := range chunks {
		doc := milvus.DocumentChunk{
			ID:          fmt.Sprintf("%s_chunk_%d", docID, ch.Index),
			Content:     ch.Content,
			Title:       title,
			SectionPath: ch.SectionPath,
			BaseURL:     baseURL,
			Section:     "chunk",
			HasCurl:     strings.Contains(ch.Content, "curl"),
			Timestamp:   now,
		}
		if ep, ok := endpointFor(ch.Content, endpoints); ok {
			doc.HTTPMethod = ep.Method
			doc.Endpoint = ep.Path
		}
		docs = append(docs, doc)
	}

	for i, ep := range endpoints {
		content := fmt.Sprintf("### %s %s", ep.Method, ep.Path)
		if ep.Summary != "" {
			content += "\n" + ep.Summary
		}
		docs = append(docs, milvus.DocumentChunk{
			ID:          fmt.Sprintf("%s_endpoint_%d", docID, i),
			Content:     content,
			Title:       title,
			SectionPath: ep.Method + " " + ep.Path,
			Endpoint:    ep.Path,
			HTTPMethod:  ep.Method,
			BaseURL:     baseURL,
			Section:     "endpoint",
			HasCurl:     ep.HasCurl,
			Timestamp:   now,
		})
	}

	if len(endpoints) > 0 {
		docs = append(docs, milvus.DocumentChunk{
			ID:          docID + "_catalog",
			Content:     extract.BuildCatalogText(title, endpoints),
			Title:       title,
			SectionPath: "API Catalog",
			BaseURL:     baseURL,
			Section:     "catalog",
			Timestamp:   now,
		})
	}

	return docs
}

// endpointFor tags a chunk with the first extracted operation it
// mentions so scalar filters can reach it.
func endpointFor(content string, endpoints []extract.Endpoint) (extract.Endpoint, bool) {
	for _, ep := range endpoints {
		if strings.Contains(content, ep.Path) {
			return ep, true
		}
	}
	return extract.Endpoint{}, false
}

// embedAll generates vectors for every index doc, reading through the
// embedding cache so re-ingesting unchanged content skips the API.
func (p *Processor) embedAll(ctx context.Context, docs []milvus.DocumentChunk) ([][]float32, error) {
	started := time.Now()
	embeddings := make([][]float32, len(docs))

	var missTexts []string
	var missIdx []int
	for i, doc := range docs {
		if p.deps.Cache != nil {
			if vec, ok := p.deps.Cache.GetEmbedding(ctx, doc.Content); ok {
				embeddings[i] = vec
				metrics.CacheHits.WithLabelValues("embedding").Inc()
				continue
			}
			metrics.CacheMisses.WithLabelValues("embedding").Inc()
		}
		missTexts = append(missTexts, doc.Content)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		fresh, err := p.deps.Embedder.GenerateBatchEmbeddings(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missTexts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(fresh), len(missTexts))
		}
		for j, i := range missIdx {
			embeddings[i] = fresh[j]
			if p.deps.Cache != nil {
				p.deps.Cache.SetEmbedding(ctx, docs[i].Content, fresh[j])
			}
		}
	}

	metrics.EmbeddingDuration.Observe(time.Since(started).Seconds())
	return embeddings, nil
}

func (p *Processor) persist(ingestionID, title, text string, chunks []Chunk, endpoints []extract.Endpoint, curls []extract.CurlExample, baseURL string, degraded bool) {
	err := p.deps.DB.InsertIngestion(&models.Ingestion{
		ID:            ingestionID,
		Title:         title,
		RawChars:      len(text),
		ChunkCount:    len(chunks),
		EndpointCount: len(endpoints),
		CurlCount:     len(curls),
		BaseURL:       baseURL,
		Degraded:      degraded,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to persist ingestion record", zap.Error(err))
		return
	}

	records := make([]models.EndpointRecord, 0, len(endpoints))
	for _, ep := range endpoints {
		records = append(records, models.EndpointRecord{
			IngestionID: ingestionID,
			Method:      ep.Method,
			Path:        ep.Path,
			Summary:     ep.Summary,
			AuthHint:    ep.AuthHint,
			HasCurl:     ep.HasCurl,
			Tags:        strings.Join(ep.Tags, ","),
			Source:      ep.Source,
		})
	}
	if err := p.deps.DB.ReplaceEndpoints(ingestionID, records); err != nil {
		logger.Warn("Failed to persist endpoint catalog", zap.Error(err))
	}
}

func looksLikeHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<body")
}

// stripHTML converts an HTML page to plain text, keeping paragraph
// breaks so the section splitter still finds structure.
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var b strings.Builder
	doc.Find("body").Find("h1, h2, h3, p, pre, li, td").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			b.WriteString("# " + text + "\n\n")
		case "h2":
			b.WriteString("## " + text + "\n\n")
		case "h3":
			b.WriteString("### " + text + "\n\n")
		default:
			b.WriteString(text + "\n\n")
		}
	})

	out := b.String()
	if strings.TrimSpace(out) == "" {
		out = doc.Find("body").Text()
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(out, " "))
}
