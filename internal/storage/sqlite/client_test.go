package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docs-agent/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIngestionRoundTrip(t *testing.T) {
	c := newTestClient(t)

	ing := &models.Ingestion{
		ID:            "ing-1",
		Title:         "Payments API",
		RawChars:      42000,
		ChunkCount:    31,
		EndpointCount: 6,
		CurlCount:     3,
		BaseURL:       "https://api.example.com/v1",
		Degraded:      false,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, c.InsertIngestion(ing))

	got, err := c.LatestIngestion()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Payments API", got.Title)
	assert.Equal(t, 31, got.ChunkCount)
	assert.Equal(t, "https://api.example.com/v1", got.BaseURL)
	assert.False(t, got.Degraded)
}

func TestLatestIngestionEmpty(t *testing.T) {
	c := newTestClient(t)

	got, err := c.LatestIngestion()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertIngestionUpsert(t *testing.T) {
	c := newTestClient(t)

	first := &models.Ingestion{ID: "ing-1", Title: "Draft", RawChars: 10, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, c.InsertIngestion(first))

	second := &models.Ingestion{ID: "ing-1", Title: "Final", RawChars: 20, Degraded: true, CreatedAt: time.Now()}
	require.NoError(t, c.InsertIngestion(second))

	got, err := c.LatestIngestion()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, 20, got.RawChars)
	assert.True(t, got.Degraded)
}

func TestReplaceEndpoints(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.InsertIngestion(&models.Ingestion{ID: "ing-1", Title: "Docs", CreatedAt: time.Now()}))

	stale := []models.EndpointRecord{
		{Method: "GET", Path: "/old", Source: "regex"},
	}
	require.NoError(t, c.ReplaceEndpoints("ing-1", stale))

	fresh := []models.EndpointRecord{
		{Method: "GET", Path: "/users", Summary: "List users", AuthHint: true, Source: "regex"},
		{Method: "POST", Path: "/users", Summary: "Create user", HasCurl: true, Source: "openapi"},
	}
	require.NoError(t, c.ReplaceEndpoints("ing-1", fresh))

	got, err := c.GetEndpoints("ing-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "GET", got[0].Method)
	assert.Equal(t, "/users", got[0].Path)
	assert.True(t, got[0].AuthHint)
	assert.Equal(t, "POST", got[1].Method)
	assert.True(t, got[1].HasCurl)
}

func TestAskHistoryOrderAndFilter(t *testing.T) {
	c := newTestClient(t)

	base := time.Now().Add(-time.Minute)
	for i, q := range []string{"how many apis", "list apis", "what is the base url"} {
		rec := &models.AskRecord{
			ID:        "ask-" + q[:4],
			SessionID: "s1",
			Question:  q,
			Intent:    "other",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, c.InsertAskRecord(rec))
	}
	require.NoError(t, c.InsertAskRecord(&models.AskRecord{
		ID: "ask-x", SessionID: "s2", Question: "other session", CreatedAt: base,
	}))

	got, err := c.GetAskHistory("s1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "what is the base url", got[0].Question)
	assert.Equal(t, "list apis", got[1].Question)

	all, err := c.GetAskHistory("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSessionTurns(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.InsertSessionTurn(&models.SessionTurn{SessionID: "s1", Role: "user", Content: "hi", CreatedAt: time.Now()}))
	require.NoError(t, c.InsertSessionTurn(&models.SessionTurn{SessionID: "s1", Role: "assistant", Content: "hello", CreatedAt: time.Now()}))
	require.NoError(t, c.InsertSessionTurn(&models.SessionTurn{SessionID: "s2", Role: "user", Content: "other", CreatedAt: time.Now()}))

	turns, err := c.GetSessionTurns("s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)

	require.NoError(t, c.ClearSessionTurns("s1"))
	turns, err = c.GetSessionTurns("s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = c.GetSessionTurns("", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 1, "other sessions survive a scoped clear")
}

func TestClearSessionTurnsAll(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.InsertSessionTurn(&models.SessionTurn{SessionID: "s1", Role: "user", Content: "a", CreatedAt: time.Now()}))
	require.NoError(t, c.InsertSessionTurn(&models.SessionTurn{SessionID: "s2", Role: "user", Content: "b", CreatedAt: time.Now()}))

	require.NoError(t, c.ClearSessionTurns(""))
	turns, err := c.GetSessionTurns("", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestDBSizeMB(t *testing.T) {
	c := newTestClient(t)
	assert.Greater(t, c.DBSizeMB(), 0.0)
}
