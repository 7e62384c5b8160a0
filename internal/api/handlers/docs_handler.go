package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/ingestion"
	"github.com/docs-agent/backend/internal/session"
	"github.com/docs-agent/backend/internal/state"
	"github.com/docs-agent/backend/pkg/logger"
)

type DocsHandler struct {
	processor *ingestion.Processor
	state     *state.Manager
	sessions  *session.Store
}

func NewDocsHandler(processor *ingestion.Processor, st *state.Manager, sessions *session.Store) *DocsHandler {
	return &DocsHandler{
		processor: processor,
		state:     st,
		sessions:  sessions,
	}
}

func (h *DocsHandler) UploadDocument(c *fiber.Ctx) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content is required",
		})
	}

	result, err := h.processor.Ingest(c.Context(), req.Title, req.Content)
	if err != nil {
		logger.Error("Failed to ingest document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process document",
		})
	}

	return c.JSON(fiber.Map{
		"message":         "Document processed successfully",
		"title":           result.Title,
		"chunks_count":    result.ChunkCount,
		"endpoints_count": result.EndpointCount,
		"curl_examples":   result.CurlCount,
		"base_url":        result.BaseURL,
		"degraded":        result.Degraded,
	})
}

// ClearDocument drops the index and every session's memory; stale
// conversation turns reference a document that no longer exists.
func (h *DocsHandler) ClearDocument(c *fiber.Ctx) error {
	if err := h.processor.Clear(c.Context()); err != nil {
		logger.Error("Failed to clear document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear document",
		})
	}

	cleared := h.sessions.ClearAll()

	return c.JSON(fiber.Map{
		"message":          "Document cleared",
		"sessions_cleared": cleared,
	})
}

func (h *DocsHandler) GetStatus(c *fiber.Ctx) error {
	snap := h.state.Current()

	status := fiber.Map{
		"is_ready":        snap.Ready,
		"documents_count": 0,
	}
	if snap.Ready {
		status["documents_count"] = 1
		status["title"] = snap.Title
		status["endpoints_count"] = snap.EndpointCount()
		status["base_url"] = snap.BaseURL
		status["curl_examples"] = snap.CurlCount
		status["chunks_count"] = snap.ChunkCount
		status["db_size_mb"] = snap.DBSizeMB
		status["degraded"] = snap.Degraded
		status["last_updated"] = snap.LastUpdated
	}

	return c.JSON(status)
}
