package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/metrics"
	"github.com/docs-agent/backend/internal/session"
	"github.com/docs-agent/backend/internal/storage/sqlite"
	"github.com/docs-agent/backend/pkg/logger"
)

type MemoryHandler struct {
	sessions *session.Store
	db       *sqlite.Client
}

func NewMemoryHandler(sessions *session.Store, db *sqlite.Client) *MemoryHandler {
	return &MemoryHandler{sessions: sessions, db: db}
}

// dropTurns clears the durable transcript to match the in-memory
// clear. Empty sessionID drops all sessions.
func (h *MemoryHandler) dropTurns(sessionID string) {
	if h.db == nil {
		return
	}
	if err := h.db.ClearSessionTurns(sessionID); err != nil {
		logger.Warn("Failed to clear persisted session turns", zap.Error(err))
	}
}

// ClearMemory wipes one session's turns, or every session when no
// session_id is given.
func (h *MemoryHandler) ClearMemory(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID != "" {
		existed := h.sessions.Clear(req.SessionID)
		h.dropTurns(req.SessionID)
		logger.Info("Session memory cleared",
			zap.String("session_id", req.SessionID),
			zap.Bool("existed", existed),
		)
		metrics.ActiveSessions.Set(float64(len(h.sessions.SessionIDs())))
		return c.JSON(fiber.Map{
			"message":    "Session memory cleared",
			"session_id": req.SessionID,
			"existed":    existed,
		})
	}

	cleared := h.sessions.ClearAll()
	h.dropTurns("")
	logger.Info("All session memory cleared", zap.Int("sessions", cleared))
	metrics.ActiveSessions.Set(0)
	return c.JSON(fiber.Map{
		"message":          "All session memory cleared",
		"sessions_cleared": cleared,
	})
}

func (h *MemoryHandler) GetMemoryStatus(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	status := h.sessions.StatusOf(sessionID)
	turns := h.sessions.Window(sessionID)
	approxBytes := 0
	for _, t := range turns {
		approxBytes += len(t.Content)
	}
	return c.JSON(fiber.Map{
		"session_id":   status.SessionID,
		"memory_count": status.Turns,
		"approx_bytes": approxBytes,
		"turns":        turns,
		"last_at":      status.LastAt,
	})
}

func (h *MemoryHandler) ListSessions(c *fiber.Ctx) error {
	ids := h.sessions.SessionIDs()
	return c.JSON(fiber.Map{
		"sessions": ids,
		"count":    len(ids),
	})
}
