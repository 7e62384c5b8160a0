package milvus

import (
	"strings"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexParamsConstruct(t *testing.T) {
	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	require.NoError(t, err)
	assert.Equal(t, entity.IvfFlat, idx.IndexType())

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	require.NoError(t, err)
	assert.NotNil(t, sp)
}

func TestFilterExpr(t *testing.T) {
	assert.Equal(t, "", Filter{}.expr())
	assert.Equal(t, `http_method == "GET"`, Filter{HTTPMethod: "GET"}.expr())
	assert.Equal(t,
		`http_method == "POST" && endpoint == "/widgets"`,
		Filter{HTTPMethod: "POST", Endpoint: "/widgets"}.expr())
	assert.Equal(t,
		`endpoint == "/widgets" && section == "endpoint"`,
		Filter{Endpoint: "/widgets", Section: "endpoint"}.expr())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 8))
	long := strings.Repeat("x", 100)
	assert.Len(t, truncate(long, 64), 64)
}
