package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docs-agent/backend/internal/state"
	"github.com/docs-agent/backend/internal/vector/milvus"
)

const sampleDoc = `---
layout: docs
---
# Widget API

The widget service is reachable at https://api.widgets.io/v2.

## List widgets

GET /widgets returns every widget.

` + "```bash\ncurl -X GET 'https://api.widgets.io/v2/widgets'\n```" + `

## Create a widget

POST /widgets creates a widget. Requires an Authorization: Bearer token.
`

type fakeIndex struct {
	drops    int
	ensures  int
	inserted [][]milvus.DocumentChunk
}

func (f *fakeIndex) Drop(ctx context.Context) error             { f.drops++; return nil }
func (f *fakeIndex) EnsureCollection(ctx context.Context) error { f.ensures++; return nil }
func (f *fakeIndex) Insert(ctx context.Context, chunks []milvus.DocumentChunk) error {
	f.inserted = append(f.inserted, chunks)
	return nil
}

type fakeEmbedder struct {
	calls int
	texts int
}

func (f *fakeEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.texts += len(texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

type fakeRecaller struct {
	raw string
	err error
}

func (f *fakeRecaller) RecallEndpoints(ctx context.Context, docText string) (string, error) {
	return f.raw, f.err
}

type mapCache struct {
	data map[string][]float32
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]float32)} }

func (m *mapCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	v, ok := m.data[text]
	return v, ok
}

func (m *mapCache) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	m.data[text] = embedding
}

func newTestProcessor(index *fakeIndex, emb *fakeEmbedder, rec Recaller, cache EmbeddingCache) (*Processor, *state.Manager) {
	st := state.NewManager()
	p := NewProcessor(Deps{
		VectorDB: index,
		Embedder: emb,
		Recaller: rec,
		Cache:    cache,
		State:    st,
	})
	return p, st
}

func TestIngestPublishesSnapshot(t *testing.T) {
	index := &fakeIndex{}
	p, st := newTestProcessor(index, &fakeEmbedder{}, nil, nil)

	res, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)

	assert.Equal(t, "Widget API", res.Title)
	assert.Equal(t, 2, res.EndpointCount)
	assert.Equal(t, 1, res.CurlCount)
	assert.Equal(t, "https://api.widgets.io/v2", res.BaseURL)
	assert.False(t, res.Degraded)
	assert.Greater(t, res.ChunkCount, 0)

	snap := st.Current()
	require.True(t, snap.Ready)
	assert.Equal(t, 2, snap.EndpointCount())
	assert.Equal(t, "https://api.widgets.io/v2", snap.BaseURL)
	assert.NotContains(t, snap.RawText, "layout: docs")

	assert.Equal(t, 1, index.drops)
	assert.Equal(t, 1, index.ensures)
	require.Len(t, index.inserted, 1)

	sections := make(map[string]int)
	for _, doc := range index.inserted[0] {
		sections[doc.Section]++
	}
	assert.Equal(t, 2, sections["endpoint"])
	assert.Equal(t, 1, sections["catalog"])
	assert.Greater(t, sections["chunk"], 0)
}

func TestIngestRecallPassMerges(t *testing.T) {
	rec := &fakeRecaller{raw: `{"endpoints": [
		{"method": "GET", "path": "/widgets", "summary": "recalled"},
		{"method": "DELETE", "path": "/invented", "summary": "not in doc"}
	]}`}
	p, st := newTestProcessor(&fakeIndex{}, &fakeEmbedder{}, rec, nil)

	res, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)

	// recalled duplicate deduped, invented endpoint rejected by validation
	assert.Equal(t, 2, res.EndpointCount)
	assert.False(t, res.Degraded)
	for _, ep := range st.Current().Endpoints {
		assert.NotEqual(t, "/invented", ep.Path)
	}
}

func TestIngestRecallFailureDegrades(t *testing.T) {
	rec := &fakeRecaller{err: errors.New("rate limited")}
	p, st := newTestProcessor(&fakeIndex{}, &fakeEmbedder{}, rec, nil)

	res, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)

	assert.True(t, res.Degraded)
	assert.True(t, st.Current().Ready)
	assert.Equal(t, 2, res.EndpointCount)
}

func TestIngestEmptyContent(t *testing.T) {
	p, st := newTestProcessor(&fakeIndex{}, &fakeEmbedder{}, nil, nil)

	_, err := p.Ingest(context.Background(), "Empty", "   \n  ")
	require.Error(t, err)
	assert.False(t, st.Current().Ready)
}

func TestReingestIsIdempotent(t *testing.T) {
	index := &fakeIndex{}
	emb := &fakeEmbedder{}
	p, st := newTestProcessor(index, emb, nil, newMapCache())

	first, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)
	embedded := emb.texts

	second, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)

	assert.Equal(t, first.EndpointCount, second.EndpointCount)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Equal(t, 2, index.drops)
	assert.Len(t, index.inserted, 2)
	assert.Len(t, index.inserted[0], len(index.inserted[1]))

	// unchanged content served from the embedding cache
	assert.Equal(t, embedded, emb.texts)
	assert.Equal(t, 2, st.Current().EndpointCount())
}

func TestClearResetsState(t *testing.T) {
	index := &fakeIndex{}
	p, st := newTestProcessor(index, &fakeEmbedder{}, nil, nil)

	_, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)
	require.True(t, st.Current().Ready)

	require.NoError(t, p.Clear(context.Background()))
	assert.False(t, st.Current().Ready)
	assert.Equal(t, 0, st.Current().EndpointCount())
	assert.Equal(t, 2, index.drops)
}

func TestIngestStripsHTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html><head><title>Widget API</title><script>boom()</script></head>
<body>
<h1>Widget API</h1>
<p>Base URL: https://api.widgets.io/v2</p>
<h2>List widgets</h2>
<p>GET /widgets returns every widget in the workspace account.</p>
</body></html>`

	index := &fakeIndex{}
	p, st := newTestProcessor(index, &fakeEmbedder{}, nil, nil)

	res, err := p.Ingest(context.Background(), "Widget API", html)
	require.NoError(t, err)

	assert.Equal(t, 1, res.EndpointCount)
	snap := st.Current()
	assert.NotContains(t, snap.RawText, "boom()")
	assert.Contains(t, snap.RawText, "GET /widgets")
}

func TestEndpointForTagsChunks(t *testing.T) {
	index := &fakeIndex{}
	p, _ := newTestProcessor(index, &fakeEmbedder{}, nil, nil)

	_, err := p.Ingest(context.Background(), "Widget API", sampleDoc)
	require.NoError(t, err)

	tagged := 0
	for _, doc := range index.inserted[0] {
		if doc.Section == "chunk" && doc.Endpoint != "" {
			tagged++
			assert.True(t, strings.Contains(doc.Content, doc.Endpoint))
		}
	}
	assert.Greater(t, tagged, 0)
}
