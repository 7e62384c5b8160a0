package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

	recallMethods = map[string]bool{
		"GET": true, "POST": true, "PUT": true, "PATCH": true,
		"DELETE": true, "OPTIONS": true, "HEAD": true,
	}
)

type recallPayload struct {
	Endpoints []struct {
		Method  string `json:"method"`
		Path    string `json:"path"`
		Summary string `json:"summary"`
	} `json:"endpoints"`
}

// ParseRecall decodes a model recall response into candidate endpoints.
// The response may wrap the JSON object in prose or a code fence; the
// first-to-last brace span is what gets decoded. Candidates with
// unknown methods or absolute URLs as paths are dropped.
func ParseRecall(raw string) []Endpoint {
	blob := jsonObjectRe.FindString(raw)
	if blob == "" {
		return nil
	}

	var payload recallPayload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return nil
	}

	var out []Endpoint
	for _, c := range payload.Endpoints {
		method := strings.ToUpper(strings.TrimSpace(c.Method))
		if !recallMethods[method] {
			continue
		}
		path := strings.TrimSpace(c.Path)
		if path == "" {
			continue
		}
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			continue
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		out = append(out, Endpoint{
			Method:  method,
			Path:    path,
			Summary: strings.TrimSpace(c.Summary),
			Source:  "recall",
		})
	}
	return out
}

// ValidateAgainst keeps only recalled endpoints whose method/path pair
// is actually present in the source document. Recall is generative and
// can invent plausible routes; nothing passes this gate on trust.
func ValidateAgainst(text string, candidates []Endpoint) []Endpoint {
	var out []Endpoint
	for _, ep := range candidates {
		if endpointPresent(text, ep.Method, ep.Path) {
			out = append(out, ep)
		}
	}
	return out
}

func endpointPresent(text, method, path string) bool {
	qm := regexp.QuoteMeta(method)
	qp := regexp.QuoteMeta(path)
	qpBare := regexp.QuoteMeta(strings.TrimLeft(path, "/"))
	patterns := []string{
		`(?im)\b` + qm + `\s+` + qp + `\b`,
		`(?is)\*\*\s*` + qm + `\s*\*\*\s*` + "`" + `\s*` + qp + `\s*` + "`",
		`(?im)\b` + qm + `\s+` + "`?" + qpBare + `\b`,
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
