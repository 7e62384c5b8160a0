package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/answer"
	"github.com/docs-agent/backend/pkg/logger"
)

type WebSocketHandler struct {
	synthesizer *answer.Synthesizer
}

func NewWebSocketHandler(synthesizer *answer.Synthesizer) *WebSocketHandler {
	return &WebSocketHandler{synthesizer: synthesizer}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			SessionID string `json:"session_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "question" {
			continue
		}
		if msg.SessionID == "" {
			msg.SessionID = defaultSessionID
		}

		logger.Info("Processing WebSocket question", zap.String("session_id", msg.SessionID))

		err = h.streamResponse(c, msg.Content, msg.SessionID)
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process question")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, question, sessionID string) error {
	h.sendChunk(c, "status", "Processing question...")

	resp := h.synthesizer.Answer(context.Background(), question, sessionID)

	words := splitIntoWords(displayText(resp.Content))
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		err := h.sendChunk(c, "chunk", chunk)
		if err != nil {
			return err
		}
	}

	return h.sendComplete(c, resp)
}

// displayText picks the most readable piece of a structured answer for
// word-by-word streaming; the full payload follows in the complete
// frame.
func displayText(ans *answer.StructuredAnswer) string {
	if ans == nil {
		return ""
	}
	if ans.ShortAnswer != "" {
		return ans.ShortAnswer
	}
	return ans.Description
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, resp *answer.Response) error {
	msg := map[string]interface{}{
		"type":          "complete",
		"response_type": resp.Type,
		"content":       resp.Content,
		"intent":        resp.Intent,
		"memory_count":  resp.MemoryCount,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
