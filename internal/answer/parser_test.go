package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompletionCleanObject(t *testing.T) {
	raw := `{"type":"table","title":"API Catalog","tables":[{"headers":["Method","Path"],"rows":[["GET","/users"]]}]}`
	ans, err := ParseCompletion(raw)
	require.NoError(t, err)
	assert.Equal(t, "table", ans.Type)
	require.Len(t, ans.Tables, 1)
	assert.Equal(t, []string{"Method", "Path"}, ans.Tables[0].Headers)
}

func TestParseCompletionWrappedInProseAndFence(t *testing.T) {
	raw := "Sure, here you go:\n```json\n{\"type\":\"simple\",\"short_answer\":\"42\"}\n```\nHope that helps."
	ans, err := ParseCompletion(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", ans.ShortAnswer)
}

func TestParseCompletionUnwrapsNestedObject(t *testing.T) {
	raw := `{"response":{"type":"explanatory","description":"The users endpoint lists users."}}`
	ans, err := ParseCompletion(raw)
	require.NoError(t, err)
	assert.Equal(t, "explanatory", ans.Type)
	assert.Contains(t, ans.Description, "users endpoint")
}

func TestParseCompletionUnwrapsJSONString(t *testing.T) {
	raw := `{"output":"{\"type\":\"simple\",\"short_answer\":\"yes\"}"}`
	ans, err := ParseCompletion(raw)
	require.NoError(t, err)
	assert.Equal(t, "yes", ans.ShortAnswer)
}

func TestParseCompletionFallsBackToDescription(t *testing.T) {
	raw := "The API has three endpoints and uses bearer auth."
	ans, err := ParseCompletion(raw)
	require.ErrorIs(t, err, ErrCompletionMalformed)
	require.NotNil(t, ans)
	assert.Equal(t, raw, ans.Description)
}

func TestParseCompletionUnrecognizedObjectFallsBack(t *testing.T) {
	raw := `{"foo":"bar","baz":1}`
	ans, err := ParseCompletion(raw)
	require.ErrorIs(t, err, ErrCompletionMalformed)
	assert.Contains(t, ans.Description, "foo")
}

func TestParseCompletionDefaultsType(t *testing.T) {
	ans, err := ParseCompletion(`{"description":"short"}`)
	require.NoError(t, err)
	assert.Equal(t, "simple", ans.Type)
}

func TestDetermineType(t *testing.T) {
	cases := []struct {
		name string
		ans  StructuredAnswer
		want string
	}{
		{"error", StructuredAnswer{Type: "error", Errors: []string{"x"}}, "error"},
		{"code", StructuredAnswer{CodeBlocks: []CodeBlock{{Code: "curl"}}}, "code"},
		{"table", StructuredAnswer{Tables: []Table{{}}}, "table"},
		{"list", StructuredAnswer{Lists: [][]string{{"a"}}}, "list"},
		{"api", StructuredAnswer{CodeBlocks: []CodeBlock{{Code: "curl"}}, Description: "with prose"}, "api"},
		{"explanatory", StructuredAnswer{Description: string(make([]byte, 150))}, "explanatory"},
		{"simple", StructuredAnswer{ShortAnswer: "hi"}, "simple"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DetermineType(&c.ans), c.name)
	}
}

func TestSynthesizeCurl(t *testing.T) {
	code := SynthesizeCurl("POST", "/users", "https://api.example.com/", "", true)
	assert.Contains(t, code, "curl -X POST")
	assert.Contains(t, code, "-H 'Content-Type: application/json'")
	assert.Contains(t, code, "-H 'Authorization: Bearer <API_TOKEN>'")
	assert.Contains(t, code, `-d '{"key": "value"}'`)
	assert.Contains(t, code, "'https://api.example.com/users'")
	assert.Contains(t, code, " \\\n")
}

func TestSynthesizeCurlNoAuthHint(t *testing.T) {
	code := SynthesizeCurl("POST", "/widgets", "https://api.example.com", "", false)
	assert.NotContains(t, code, "Authorization")
	assert.NotContains(t, code, "api-key")
	assert.Contains(t, code, "-H 'Content-Type: application/json'")
}

func TestSynthesizeCurlGetWithoutBaseURL(t *testing.T) {
	code := SynthesizeCurl("GET", "/health", "", "", false)
	assert.Contains(t, code, "'<BASE_URL>/health'")
	assert.NotContains(t, code, "Content-Type")
	assert.NotContains(t, code, "-d '")
}
