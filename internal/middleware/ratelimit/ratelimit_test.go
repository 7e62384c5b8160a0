package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(maxPerMinute, uploadCost int) *RateLimiter {
	rl := New(Config{
		MaxRequestsPerMinute: maxPerMinute,
		WindowDuration:       time.Minute,
		UploadCost:           uploadCost,
	})
	rl.Stop()
	return rl
}

func TestAllowExhaustsBucket(t *testing.T) {
	rl := newTestLimiter(3, 5)

	assert.True(t, rl.allow("a", 1))
	assert.True(t, rl.allow("a", 1))
	assert.True(t, rl.allow("a", 1))
	assert.False(t, rl.allow("a", 1))
	assert.True(t, rl.allow("b", 1), "keys have independent buckets")
}

func TestUploadCostsMoreThanAsk(t *testing.T) {
	rl := newTestLimiter(10, 5)

	assert.Equal(t, 5, rl.costOf("POST", "/api/v1/documents"))
	assert.Equal(t, 1, rl.costOf("POST", "/api/v1/ask"))
	assert.Equal(t, 1, rl.costOf("GET", "/api/v1/documents/status"))

	assert.True(t, rl.allow("u", rl.costOf("POST", "/api/v1/documents")))
	assert.True(t, rl.allow("u", rl.costOf("POST", "/api/v1/documents")))
	// 10 tokens minus two uploads leaves nothing for a third
	assert.False(t, rl.allow("u", rl.costOf("POST", "/api/v1/documents")))
	assert.False(t, rl.allow("u", 1))
}
