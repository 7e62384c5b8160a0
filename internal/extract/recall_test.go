package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecallPlainObject(t *testing.T) {
	raw := `{"endpoints":[{"method":"get","path":"users","summary":"List users"},{"method":"POST","path":"/users","summary":""}]}`
	eps := ParseRecall(raw)
	require.Len(t, eps, 2)
	assert.Equal(t, "GET /users", eps[0].Key())
	assert.Equal(t, "List users", eps[0].Summary)
	assert.Equal(t, "POST /users", eps[1].Key())
}

func TestParseRecallWrappedInFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"endpoints\":[{\"method\":\"DELETE\",\"path\":\"/users/{id}\"}]}\n```\nDone."
	eps := ParseRecall(raw)
	require.Len(t, eps, 1)
	assert.Equal(t, "DELETE /users/{id}", eps[0].Key())
}

func TestParseRecallRejectsJunk(t *testing.T) {
	raw := `{"endpoints":[
		{"method":"FETCH","path":"/nope"},
		{"method":"GET","path":"https://evil.example.com/x"},
		{"method":"GET","path":""}
	]}`
	assert.Empty(t, ParseRecall(raw))
	assert.Empty(t, ParseRecall("no json here"))
	assert.Empty(t, ParseRecall("{broken"))
}

func TestValidateAgainstDropsInventions(t *testing.T) {
	doc := "## Users\n\nGET /users returns the user list.\n"
	candidates := []Endpoint{
		{Method: "GET", Path: "/users", Source: "recall"},
		{Method: "DELETE", Path: "/users/purge-all", Source: "recall"},
	}
	kept := ValidateAgainst(doc, candidates)
	require.Len(t, kept, 1)
	assert.Equal(t, "GET /users", kept[0].Key())
}

func TestValidateAgainstMarkdownForm(t *testing.T) {
	doc := "**POST** `/widgets` creates a widget.\n"
	kept := ValidateAgainst(doc, []Endpoint{{Method: "POST", Path: "/widgets"}})
	require.Len(t, kept, 1)
}

func TestTryOpenAPI(t *testing.T) {
	doc := `openapi: 3.0.0
info:
  title: Widgets
paths:
  /widgets:
    get:
      summary: List widgets
      tags: [widgets]
    post:
      summary: Create widget
      security:
        - bearerAuth: []
  /widgets/{id}:
    delete:
      summary: Remove widget
`
	eps := TryOpenAPI(doc)
	require.Len(t, eps, 3)

	byKey := make(map[string]Endpoint)
	for _, ep := range eps {
		byKey[ep.Key()] = ep
	}
	assert.Equal(t, "List widgets", byKey["GET /widgets"].Summary)
	assert.True(t, byKey["POST /widgets"].AuthHint)
	assert.Contains(t, byKey["GET /widgets"].Tags, "widgets")
	assert.Contains(t, byKey, "DELETE /widgets/{id}")
}

func TestTryOpenAPINonSpecInput(t *testing.T) {
	assert.Nil(t, TryOpenAPI("# Just markdown\n\nGET /users\n"))
	assert.Nil(t, TryOpenAPI("openapi: 3.0.0\npaths: {broken yaml"))
	assert.Nil(t, TryOpenAPI("openapi: 3.0.0\ninfo:\n  title: no paths\n"))
}
