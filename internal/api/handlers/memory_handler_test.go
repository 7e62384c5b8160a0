package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docs-agent/backend/internal/session"
)

func newMemoryApp(sessions *session.Store) *fiber.App {
	app := fiber.New()
	h := NewMemoryHandler(sessions, nil)
	app.Get("/api/v1/memory/status/:session_id", h.GetMemoryStatus)
	app.Get("/api/v1/memory/sessions", h.ListSessions)
	return app
}

func TestGetMemoryStatusCountsTurns(t *testing.T) {
	sessions := session.NewStore(10)
	sessions.Append("alpha", "user", "how do I list widgets?")
	sessions.Append("alpha", "assistant", "GET /widgets")
	app := newMemoryApp(sessions)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/memory/status/alpha", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		SessionID   string         `json:"session_id"`
		MemoryCount int            `json:"memory_count"`
		ApproxBytes int            `json:"approx_bytes"`
		Turns       []session.Turn `json:"turns"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, "alpha", body.SessionID)
	assert.Equal(t, 2, body.MemoryCount)
	assert.Equal(t, len("how do I list widgets?")+len("GET /widgets"), body.ApproxBytes)
	require.Len(t, body.Turns, 2)
	assert.Equal(t, "user", body.Turns[0].Role)
}

func TestGetMemoryStatusUnknownSession(t *testing.T) {
	app := newMemoryApp(session.NewStore(10))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/memory/status/ghost", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		MemoryCount int            `json:"memory_count"`
		ApproxBytes int            `json:"approx_bytes"`
		Turns       []session.Turn `json:"turns"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, 0, body.MemoryCount)
	assert.Equal(t, 0, body.ApproxBytes)
	assert.Empty(t, body.Turns)
}

func TestListSessions(t *testing.T) {
	sessions := session.NewStore(10)
	sessions.Append("b", "user", "x")
	sessions.Append("a", "user", "y")
	app := newMemoryApp(sessions)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/memory/sessions", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Sessions []string `json:"sessions"`
		Count    int      `json:"count"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, []string{"a", "b"}, body.Sessions)
	assert.Equal(t, 2, body.Count)
}
