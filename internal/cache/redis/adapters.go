package redis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/answer"
	"github.com/docs-agent/backend/pkg/logger"
	"github.com/docs-agent/backend/pkg/utils"
)

// EmbeddingCache adapts Client to the retrieval engine's cache
// interface. Cache failures degrade to a miss; retrieval never fails
// because Redis is down.
type EmbeddingCache struct {
	client *Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *Client, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (e *EmbeddingCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	if e == nil || e.client == nil {
		return nil, false
	}
	embedding, ok, err := e.client.GetEmbedding(ctx, utils.HashString(text))
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
		return nil, false
	}
	return embedding, ok
}

func (e *EmbeddingCache) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	if e == nil || e.client == nil {
		return
	}
	if err := e.client.SetEmbedding(ctx, utils.HashString(text), embedding, e.ttl); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}

// AnswerCache adapts Client to the synthesizer's cache interface.
type AnswerCache struct {
	client *Client
	ttl    time.Duration
}

func NewAnswerCache(client *Client, ttl time.Duration) *AnswerCache {
	return &AnswerCache{client: client, ttl: ttl}
}

func (a *AnswerCache) GetAnswer(ctx context.Context, question string) (*answer.StructuredAnswer, bool) {
	if a == nil || a.client == nil {
		return nil, false
	}
	var ans answer.StructuredAnswer
	ok, err := a.client.GetAnswer(ctx, utils.HashString(question), &ans)
	if err != nil {
		logger.Warn("Answer cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &ans, true
}

func (a *AnswerCache) SetAnswer(ctx context.Context, question string, ans *answer.StructuredAnswer) {
	if a == nil || a.client == nil {
		return
	}
	if err := a.client.SetAnswer(ctx, utils.HashString(question), ans, a.ttl); err != nil {
		logger.Warn("Answer cache write failed", zap.Error(err))
	}
}
