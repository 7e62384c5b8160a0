package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/extract"
	"github.com/docs-agent/backend/internal/intent"
	"github.com/docs-agent/backend/internal/llm"
	"github.com/docs-agent/backend/internal/retrieval"
	"github.com/docs-agent/backend/internal/session"
	"github.com/docs-agent/backend/internal/state"
	"github.com/docs-agent/backend/internal/vector/milvus"
	"github.com/docs-agent/backend/pkg/logger"
)

type Retriever interface {
	Retrieve(ctx context.Context, question string, op *intent.Operation) ([]milvus.SearchResult, error)
}

type ChunkSource interface {
	QueryByFilter(ctx context.Context, filter milvus.Filter) ([]milvus.SearchResult, error)
}

type Completer interface {
	AnswerQuestion(ctx context.Context, req llm.AnswerRequest) (string, error)
}

// AnswerCache is an optional question-level cache for generative
// answers. Ingestion and clears invalidate it.
type AnswerCache interface {
	GetAnswer(ctx context.Context, question string) (*StructuredAnswer, bool)
	SetAnswer(ctx context.Context, question string, a *StructuredAnswer)
}

// Response is what an ask returns to the transport layer.
type Response struct {
	Type        string            `json:"type"`
	Content     *StructuredAnswer `json:"content"`
	Intent      string            `json:"intent"`
	MemoryCount int               `json:"memory_count"`
}

// Synthesizer routes a question to the cheapest path that can answer
// it: extracted facts, documented examples, then generation.
type Synthesizer struct {
	state     *state.Manager
	sessions  *session.Store
	retriever Retriever
	chunks    ChunkSource
	completer Completer
	cache     AnswerCache
}

func NewSynthesizer(st *state.Manager, sessions *session.Store, retriever Retriever, chunks ChunkSource, completer Completer, cache AnswerCache) *Synthesizer {
	return &Synthesizer{
		state:     st,
		sessions:  sessions,
		retriever: retriever,
		chunks:    chunks,
		completer: completer,
		cache:     cache,
	}
}

// Answer handles one question in one session.
func (s *Synthesizer) Answer(ctx context.Context, question, sessionID string) *Response {
	snap := s.state.Current()
	if !snap.Ready {
		return s.respond(NoDocument(), intent.Other, sessionID, false)
	}

	in := intent.Classify(question)
	logger.Debug("Question classified",
		zap.String("intent", string(in)),
		zap.String("session_id", sessionID),
	)

	var ans *StructuredAnswer
	switch in {
	case intent.ListAPIs:
		ans = listAPIsAnswer(snap)
	case intent.CountAPIs:
		ans = countAPIsAnswer(snap)
	case intent.ListBaseURLs:
		ans = baseURLsAnswer(snap)
	case intent.FindCurl, intent.GenerateCurl:
		ans = s.curlAnswer(ctx, question, in, snap)
	default:
		ans = s.generativeAnswer(ctx, question, sessionID, in)
	}

	return s.respond(ans, in, sessionID, true, question)
}

func (s *Synthesizer) respond(ans *StructuredAnswer, in intent.Intent, sessionID string, remember bool, question ...string) *Response {
	if remember && len(question) > 0 {
		s.sessions.Append(sessionID, "user", question[0])
		serialized, err := json.Marshal(ans)
		if err != nil {
			serialized = []byte(ans.Description)
		}
		s.sessions.Append(sessionID, "assistant", string(serialized))
	}
	return &Response{
		Type:        DetermineType(ans),
		Content:     ans,
		Intent:      string(in),
		MemoryCount: s.sessions.Count(sessionID),
	}
}

// listAPIsAnswer renders the extracted endpoint facts as a table with
// no completion call involved.
func listAPIsAnswer(snap *state.Snapshot) *StructuredAnswer {
	if len(snap.Endpoints) == 0 {
		return NoEndpoints()
	}

	rows := make([][]string, 0, len(snap.Endpoints))
	for _, e := range snap.Endpoints {
		rows = append(rows, []string{
			e.Method,
			e.Path,
			e.Summary,
			strconv.FormatBool(e.AuthHint),
			strconv.FormatBool(e.HasCurl),
		})
	}

	return &StructuredAnswer{
		Type:        "table",
		Title:       "API Catalog",
		Description: "List of endpoints discovered from the uploaded docs.",
		Tables: []Table{{
			Headers: []string{"Method", "Path", "Summary", "Auth", "Has cURL"},
			Rows:    rows,
		}},
		Notes: []string{baseURLNote(snap), "Grounded in uploaded documentation."},
	}
}

func countAPIsAnswer(snap *state.Snapshot) *StructuredAnswer {
	n := snap.EndpointCount()
	if n == 0 {
		return NoEndpoints()
	}
	return &StructuredAnswer{
		Type:        "values",
		Values:      map[string]interface{}{"endpoint_count": n},
		ShortAnswer: fmt.Sprintf("The documentation defines %d endpoints.", n),
		Notes:       []string{"Grounded in uploaded documentation."},
	}
}

func baseURLsAnswer(snap *state.Snapshot) *StructuredAnswer {
	if snap.BaseURL == "" && len(snap.BaseURLs) == 0 {
		return NotFound("No base URL found in the documentation.")
	}
	urls := snap.BaseURLs
	if len(urls) == 0 {
		urls = []string{snap.BaseURL}
	}
	return &StructuredAnswer{
		Type:        "list",
		Title:       "Base URLs",
		Lists:       [][]string{urls},
		Values:      map[string]interface{}{"base_url": snap.BaseURL},
		ShortAnswer: snap.BaseURL,
		Notes:       []string{"Grounded in uploaded documentation."},
	}
}

func (s *Synthesizer) curlAnswer(ctx context.Context, question string, in intent.Intent, snap *state.Snapshot) *StructuredAnswer {
	op := intent.ParseOperation(question)
	allowSynthesis := in == intent.GenerateCurl

	q := strings.ToLower(question)
	if allowSynthesis && (strings.Contains(q, "all") || strings.Contains(q, "each")) {
		return s.curlsForAllEndpoints(ctx, snap)
	}

	method, path := "", ""
	if op != nil {
		method, path = op.Method, op.Path
	}
	return s.curlFromDocs(ctx, snap, method, path, allowSynthesis)
}

func (s *Synthesizer) curlFromDocs(ctx context.Context, snap *state.Snapshot, method, path string, allowSynthesis bool) *StructuredAnswer {
	examples := s.findCurlExamples(ctx, method, path, 3)
	if len(examples) > 0 {
		blocks := make([]CodeBlock, 0, len(examples))
		var notes []string
		for _, e := range examples {
			title := e.Context
			if title == "" {
				title = "cURL example"
			}
			blocks = append(blocks, CodeBlock{Language: "bash", Title: title, Code: e.Code})
			if e.Context != "" {
				notes = append(notes, "Source section: "+e.Context)
			}
		}
		return &StructuredAnswer{
			Type:        "code",
			Title:       "cURL examples",
			Description: "Found cURL examples in the documentation.",
			CodeBlocks:  blocks,
			Notes:       notes,
		}
	}

	if !allowSynthesis {
		target := ""
		if method != "" && path != "" {
			target = fmt.Sprintf(" for %s %s", method, path)
		}
		return NotFound(fmt.Sprintf("No cURL example found in the documentation%s.", target))
	}

	if method != "" && path != "" {
		authHint := false
		for _, e := range snap.Endpoints {
			if strings.EqualFold(e.Method, method) && e.Path == path {
				authHint = e.AuthHint
				break
			}
		}
		code := SynthesizeCurl(method, path, snap.BaseURL, "", authHint)
		return &StructuredAnswer{
			Type:        "code",
			Title:       "cURL (synthesized)",
			Description: "Synthesized from documentation metadata. Replace placeholders before use.",
			CodeBlocks:  []CodeBlock{{Language: "bash", Title: method + " " + path, Code: code}},
			Notes:       []string{"Synthesized due to missing explicit example in docs."},
		}
	}

	return NotFound("Method and endpoint are required to generate a cURL command.")
}

func (s *Synthesizer) curlsForAllEndpoints(ctx context.Context, snap *state.Snapshot) *StructuredAnswer {
	if len(snap.Endpoints) == 0 {
		return NotFound("No endpoints found in the uploaded documentation.")
	}

	var blocks []CodeBlock
	var notes []string
	seenNote := make(map[string]bool)
	for _, e := range snap.Endpoints {
		res := s.curlFromDocs(ctx, snap, e.Method, e.Path, true)
		if res.IsError() {
			continue
		}
		for _, cb := range res.CodeBlocks {
			if cb.Title == "" {
				cb.Title = e.Method + " " + e.Path
			}
			blocks = append(blocks, cb)
		}
		for _, n := range res.Notes {
			if !seenNote[n] {
				seenNote[n] = true
				notes = append(notes, n)
			}
		}
	}

	if len(blocks) == 0 {
		return NotFound("Unable to generate cURLs for endpoints.")
	}

	if note := baseURLNote(snap); !seenNote[note] {
		notes = append(notes, note)
	}

	return &StructuredAnswer{
		Type:        "code",
		Title:       "cURL commands for all endpoints",
		Description: "Generated from documentation context. Replace placeholders before use.",
		CodeBlocks:  blocks,
		Notes:       notes,
	}
}

// findCurlExamples pulls documented curl invocations out of indexed
// chunks matching the operation. With no operation named, all text
// chunks are candidates.
func (s *Synthesizer) findCurlExamples(ctx context.Context, method, path string, limit int) []extract.CurlExample {
	filter := milvus.Filter{HTTPMethod: method, Endpoint: path}
	if method == "" && path == "" {
		filter.Section = "chunk"
	}

	chunks, err := s.chunks.QueryByFilter(ctx, filter)
	if err != nil {
		logger.Warn("Curl example lookup failed", zap.Error(err))
		return nil
	}

	var out []extract.CurlExample
	for _, c := range chunks {
		for _, e := range extract.ExtractCurlExamples(c.Content) {
			if e.Context == "" && c.SectionPath != "" {
				e.Context = c.SectionPath
			}
			out = append(out, e)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func (s *Synthesizer) generativeAnswer(ctx context.Context, question, sessionID string, in intent.Intent) *StructuredAnswer {
	if s.cache != nil {
		if cached, ok := s.cache.GetAnswer(ctx, question); ok {
			logger.Debug("Answer served from cache", zap.String("question", question))
			return cached
		}
	}

	op := intent.ParseOperation(question)

	results, err := s.retriever.Retrieve(ctx, question, op)
	if err != nil {
		return RetrievalUnavailable(err)
	}

	raw, err := s.completer.AnswerQuestion(ctx, llm.AnswerRequest{
		Question:    question,
		Context:     retrieval.FormatContext(results),
		ChatHistory: formatHistory(s.sessions.Window(sessionID)),
		TaskPreface: taskPreface(in, op),
	})
	if err != nil {
		return Internal(err)
	}

	ans, perr := ParseCompletion(raw)
	if perr != nil {
		ans.Errors = append(ans.Errors, "Completion output failed strict validation; returning raw text.")
	} else if s.cache != nil && !ans.IsError() {
		s.cache.SetAnswer(ctx, question, ans)
	}
	return ans
}

func formatHistory(turns []session.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func taskPreface(in intent.Intent, op *intent.Operation) string {
	target := ""
	if op != nil && op.Method != "" && op.Path != "" {
		target = fmt.Sprintf(" for %s %s", op.Method, op.Path)
	}

	switch in {
	case intent.ComprehensiveList:
		return "Task: COMPREHENSIVE LIST - Retrieve and list ALL API endpoints from the entire documentation. " +
			"This requires full document coverage, not just search results. Return JSON with type='table' and " +
			"tables=[{headers,rows}]. Use columns: Method, Path, Summary, Auth, Has cURL. " +
			"Include ALL endpoints found in the documentation. Include citations in notes.\n"
	case intent.GetPayload:
		return fmt.Sprintf("Task: Return request/response payload details%s. Strict JSON: type='values', ", target) +
			"values={request:{schema,example}, responses:[{status,schema,example}]}. Include citations in notes.\n"
	case intent.GenerateCurl:
		return fmt.Sprintf("Task: Generate cURL commands%s. Strict JSON: type='code', code_blocks=[{language:'bash',title,code}]. ", target) +
			"Use placeholders like <API_TOKEN>, <BASE_URL> if needed; include minimal required headers. Include citations in notes.\n"
	}
	return ""
}

func baseURLNote(snap *state.Snapshot) string {
	if snap.BaseURL != "" {
		return "Base URL: " + snap.BaseURL
	}
	return "Base URL: <BASE URL>"
}
