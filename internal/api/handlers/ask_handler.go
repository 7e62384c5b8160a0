package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/answer"
	"github.com/docs-agent/backend/internal/metrics"
	"github.com/docs-agent/backend/internal/storage/models"
	"github.com/docs-agent/backend/internal/storage/sqlite"
	"github.com/docs-agent/backend/pkg/logger"
)

const defaultSessionID = "default"

type AskHandler struct {
	synthesizer *answer.Synthesizer
	db          *sqlite.Client
}

func NewAskHandler(synthesizer *answer.Synthesizer, db *sqlite.Client) *AskHandler {
	return &AskHandler{
		synthesizer: synthesizer,
		db:          db,
	}
}

func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	started := time.Now()
	resp := h.synthesizer.Answer(c.Context(), req.Question, req.SessionID)
	latency := time.Since(started)

	metrics.AskDuration.WithLabelValues(resp.Intent).Observe(latency.Seconds())
	metrics.AskTotal.WithLabelValues(resp.Intent, resp.Type).Inc()

	h.record(req.SessionID, req.Question, resp, latency)

	return c.JSON(fiber.Map{
		"type":         resp.Type,
		"content":      resp.Content,
		"intent":       resp.Intent,
		"memory_count": resp.MemoryCount,
		"session_id":   req.SessionID,
		"latency_ms":   latency.Milliseconds(),
	})
}

func (h *AskHandler) GetAskHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	if h.db == nil {
		return c.JSON(fiber.Map{"history": []interface{}{}})
	}

	records, err := h.db.GetAskHistory(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load ask history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
		"count":   len(records),
	})
}

func (h *AskHandler) record(sessionID, question string, resp *answer.Response, latency time.Duration) {
	if h.db == nil {
		return
	}

	serialized, err := json.Marshal(resp.Content)
	if err != nil {
		serialized = nil
	}

	err = h.db.InsertAskRecord(&models.AskRecord{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Question:     question,
		Intent:       resp.Intent,
		ResponseType: resp.Type,
		Response:     string(serialized),
		MemoryCount:  resp.MemoryCount,
		LatencyMS:    int(latency.Milliseconds()),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record ask", zap.Error(err))
	}

	// Durable transcript alongside the in-memory window.
	now := time.Now()
	turns := []models.SessionTurn{
		{SessionID: sessionID, Role: "user", Content: question, CreatedAt: now},
		{SessionID: sessionID, Role: "assistant", Content: string(serialized), CreatedAt: now},
	}
	for i := range turns {
		if err := h.db.InsertSessionTurn(&turns[i]); err != nil {
			logger.Warn("Failed to persist session turn", zap.Error(err))
		}
	}
}
