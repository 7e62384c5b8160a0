package answer

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrCompletionMalformed marks output that failed schema validation
// even after the unwrap attempt. The returned answer is still usable:
// the raw text is wrapped as a description-only answer.
var ErrCompletionMalformed = errors.New("completion output malformed")

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

var knownKeys = map[string]bool{
	"type": true, "title": true, "description": true, "code_blocks": true,
	"tables": true, "lists": true, "links": true, "notes": true,
	"warnings": true, "errors": true, "values": true, "short_answer": true,
}

// ParseCompletion decodes completion output into a StructuredAnswer.
// The completion contract is a bare JSON object, but models wrap it in
// prose, fences, or a second JSON layer; this parser tolerates one
// level of that. On failure it returns a description-only wrapper of
// the raw text together with ErrCompletionMalformed, never nothing.
func ParseCompletion(raw string) (*StructuredAnswer, error) {
	blob := jsonObjectRe.FindString(raw)
	if blob == "" {
		return fallbackAnswer(raw), ErrCompletionMalformed
	}

	if ans, ok := decodeAnswer([]byte(blob)); ok {
		return ans, nil
	}

	// one-level unwrap: a field holding the real object, either as a
	// nested object or as a JSON-encoded string
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &top); err == nil {
		keys := make([]string, 0, len(top))
		for k := range top {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := top[k]
			var s string
			if json.Unmarshal(v, &s) == nil {
				if inner := jsonObjectRe.FindString(s); inner != "" {
					if ans, ok := decodeAnswer([]byte(inner)); ok {
						return ans, nil
					}
				}
				continue
			}
			if ans, ok := decodeAnswer(v); ok {
				return ans, nil
			}
		}
	}

	return fallbackAnswer(raw), ErrCompletionMalformed
}

// decodeAnswer accepts a JSON object only when it carries at least one
// schema key and decodes cleanly.
func decodeAnswer(blob []byte) (*StructuredAnswer, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(blob, &probe); err != nil {
		return nil, false
	}
	recognized := false
	for k := range probe {
		if knownKeys[k] {
			recognized = true
			break
		}
	}
	if !recognized {
		return nil, false
	}

	var ans StructuredAnswer
	if err := json.Unmarshal(blob, &ans); err != nil {
		return nil, false
	}
	if ans.Type == "" {
		ans.Type = DetermineType(&ans)
	}
	return &ans, true
}

func fallbackAnswer(raw string) *StructuredAnswer {
	text := strings.TrimSpace(raw)
	ans := &StructuredAnswer{Description: text}
	ans.Type = DetermineType(ans)
	return ans
}
