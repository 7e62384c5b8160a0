package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// DocumentChunk is one indexed unit: a text chunk, a per-endpoint
// summary document, or the synthetic catalog document. Section tells
// them apart ("chunk", "endpoint", "catalog").
type DocumentChunk struct {
	ID          string
	Embedding   []float32
	Content     string
	Title       string
	SectionPath string
	Endpoint    string
	HTTPMethod  string
	BaseURL     string
	Section     string
	HasCurl     bool
	Timestamp   time.Time
}

type SearchResult struct {
	ChunkID     string
	Content     string
	Title       string
	SectionPath string
	Endpoint    string
	HTTPMethod  string
	BaseURL     string
	Section     string
	Score       float32
}

// Filter narrows search to chunks about a specific operation.
type Filter struct {
	HTTPMethod string
	Endpoint   string
	Section    string
}

var outputFields = []string{"chunk_id", "content", "title", "section_path", "endpoint", "http_method", "base_url", "section"}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewClient(context.Background(), client.Config{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "API documentation embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "section_path",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "endpoint",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "http_method",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
			{
				Name:     "base_url",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
			{
				Name:     "section",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "has_curl",
				DataType: entity.FieldTypeBool,
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

// Drop removes the collection entirely. Re-ingestion calls this first
// so stale chunks from the previous document never survive.
func (m *Client) Drop(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil
	}

	if err := m.client.DropCollection(ctx, m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	logger.Info("Collection dropped", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, chunks []DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	contents := make([]string, len(chunks))
	titles := make([]string, len(chunks))
	sectionPaths := make([]string, len(chunks))
	endpoints := make([]string, len(chunks))
	methods := make([]string, len(chunks))
	baseURLs := make([]string, len(chunks))
	sections := make([]string, len(chunks))
	hasCurls := make([]bool, len(chunks))
	timestamps := make([]int64, len(chunks))

	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		contents[i] = truncate(chunk.Content, 8192)
		titles[i] = truncate(chunk.Title, 512)
		sectionPaths[i] = truncate(chunk.SectionPath, 512)
		endpoints[i] = truncate(chunk.Endpoint, 512)
		methods[i] = chunk.HTTPMethod
		baseURLs[i] = truncate(chunk.BaseURL, 256)
		sections[i] = chunk.Section
		hasCurls[i] = chunk.HasCurl
		timestamps[i] = chunk.Timestamp.Unix()
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("section_path", sectionPaths),
		entity.NewColumnVarChar("endpoint", endpoints),
		entity.NewColumnVarChar("http_method", methods),
		entity.NewColumnVarChar("base_url", baseURLs),
		entity.NewColumnVarChar("section", sections),
		entity.NewColumnBool("has_curl", hasCurls),
		entity.NewColumnInt64("timestamp", timestamps),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks inserted into vector DB", zap.Int("count", len(chunks)))

	return nil
}

func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]SearchResult, error) {
	expr := filter.expr()

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		outputFields,
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			r, err := resultAt(sr.Fields, i)
			if err != nil {
				return nil, err
			}
			r.Score = sr.Scores[i]
			results = append(results, r)
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
		zap.String("filters", expr),
	)

	return results, nil
}

// QueryByFilter fetches chunks by scalar metadata alone, no vector
// involved. Used as the exact-match leg of hybrid retrieval.
func (m *Client) QueryByFilter(ctx context.Context, filter Filter) ([]SearchResult, error) {
	expr := filter.expr()
	if expr == "" {
		return nil, nil
	}

	rs, err := m.client.Query(ctx, m.collectionName, []string{}, expr, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	n := 0
	if len(rs) > 0 {
		n = rs[0].Len()
	}

	results := make([]SearchResult, 0, n)
	for i := 0; i < n; i++ {
		r, err := resultAt(rs, i)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	logger.Debug("Scalar query completed",
		zap.String("expr", expr),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (f Filter) expr() string {
	expr := ""
	if f.HTTPMethod != "" {
		expr = fmt.Sprintf(`http_method == "%s"`, f.HTTPMethod)
	}
	if f.Endpoint != "" {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf(`endpoint == "%s"`, f.Endpoint)
	}
	if f.Section != "" {
		if expr != "" {
			expr += " && "
		}
		expr += fmt.Sprintf(`section == "%s"`, f.Section)
	}
	return expr
}

type columnSet interface {
	GetColumn(name string) entity.Column
}

func resultAt(fields columnSet, i int) (SearchResult, error) {
	var r SearchResult
	var err error

	if r.ChunkID, err = stringAt(fields.GetColumn("chunk_id"), i); err != nil {
		return r, err
	}
	if r.Content, err = stringAt(fields.GetColumn("content"), i); err != nil {
		return r, err
	}
	if r.Title, err = stringAt(fields.GetColumn("title"), i); err != nil {
		return r, err
	}
	if r.SectionPath, err = stringAt(fields.GetColumn("section_path"), i); err != nil {
		return r, err
	}
	if r.Endpoint, err = stringAt(fields.GetColumn("endpoint"), i); err != nil {
		return r, err
	}
	if r.HTTPMethod, err = stringAt(fields.GetColumn("http_method"), i); err != nil {
		return r, err
	}
	if r.BaseURL, err = stringAt(fields.GetColumn("base_url"), i); err != nil {
		return r, err
	}
	if r.Section, err = stringAt(fields.GetColumn("section"), i); err != nil {
		return r, err
	}
	return r, nil
}

func stringAt(col entity.Column, i int) (string, error) {
	if col == nil {
		return "", fmt.Errorf("missing output column")
	}
	v, err := col.Get(i)
	if err != nil {
		return "", fmt.Errorf("failed to read column %s: %w", col.Name(), err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type in column %s", col.Name())
	}
	return s, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
