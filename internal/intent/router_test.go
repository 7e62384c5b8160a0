package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     Intent
	}{
		{"Show me all endpoints in this API", ComprehensiveList},
		{"give me the complete api list", ComprehensiveList},
		{"list apis", ListAPIs},
		{"which endpoints are available? please enumerate them", ListAPIs},
		{"what is the request body for POST /users", GetPayload},
		{"what parameters does this take", GetPayload},
		{"generate a curl command for DELETE /users/1", GenerateCurl},
		{"is there an existing curl example for GET /users", FindCurl},
		{"curl", Other},
		{"how many apis does this service expose", CountAPIs},
		{"what is the base url", ListBaseURLs},
		{"why does the token expire", Other},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.question), "question: %q", c.question)
	}
}

func TestClassifyComprehensiveOutranksList(t *testing.T) {
	// overlaps list_apis keywords but the exhaustive phrasing wins
	assert.Equal(t, ComprehensiveList, Classify("list all apis"))
}

func TestClassifyCurlGenerateOutranksFind(t *testing.T) {
	// both verb families present; generation wins
	assert.Equal(t, GenerateCurl, Classify("generate and show a curl for POST /orders"))
}

func TestDeterministic(t *testing.T) {
	assert.True(t, ListAPIs.Deterministic())
	assert.True(t, CountAPIs.Deterministic())
	assert.True(t, ListBaseURLs.Deterministic())
	assert.False(t, ComprehensiveList.Deterministic())
	assert.False(t, GenerateCurl.Deterministic())
	assert.False(t, Other.Deterministic())
}

func TestParseOperation(t *testing.T) {
	op := ParseOperation("show the payload for POST /users/{id}/orders")
	require.NotNil(t, op)
	assert.Equal(t, "POST", op.Method)
	assert.Equal(t, "/users/{id}/orders", op.Path)

	op = ParseOperation("generate curl for the put endpoints")
	require.NotNil(t, op)
	assert.Equal(t, "PUT", op.Method)
	assert.Equal(t, "", op.Path)

	assert.Nil(t, ParseOperation("what does this service do"))
}
