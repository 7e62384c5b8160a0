package extract

import (
	"regexp"
	"strings"
)

const methodAlt = `GET|POST|PUT|PATCH|DELETE|OPTIONS|HEAD`

var (
	// METHOD /path on a line, e.g. "GET /v1/users"
	plainEndpointRe = regexp.MustCompile(`(?im)\b(` + methodAlt + `)\s+(/[^\s` + "`" + `#]+)`)
	// **METHOD** `/path` markdown emphasis form
	markdownEndpointRe = regexp.MustCompile(`(?is)\*\*\s*(` + methodAlt + `)\s*\*\*\s*` + "`" + `\s*(/[^` + "`" + `\s]+)\s*` + "`")
	// METHOD host/path without a leading slash, e.g. "GET api.example.com/users"
	noSlashEndpointRe = regexp.MustCompile(`(?im)\b(` + methodAlt + `)\s+([a-zA-Z][^\s` + "`" + `#]+/[^\s` + "`" + `#]+)`)

	fencedBlockRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\n(.*?)```")
	curlBodyRe     = regexp.MustCompile(`(?im)^\s*curl\b`)
	windowCurlRe   = regexp.MustCompile("(?im)```\\s*curl|^\\s*curl\\s")
	windowAuthRe   = regexp.MustCompile(`(?i)authorization|bearer|oauth|api[-_ ]?key`)
	windowHeaderRe = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
)

const (
	windowBefore = 300
	windowAfter  = 500
)

// ExtractEndpoints recovers endpoints from documentation text by
// pattern matching alone. Duplicate "METHOD path" pairs keep the first
// occurrence, so surface forms earlier in the pass order win.
func ExtractEndpoints(text string) []Endpoint {
	curlSpans := curlFenceSpans(text)

	var found []Endpoint
	seen := make(map[string]bool)

	add := func(method, path string, start, end int) {
		method = strings.ToUpper(method)
		if !strings.HasPrefix(path, "/") {
			if i := strings.Index(path, "/"); i >= 0 {
				path = path[i:]
			} else {
				return
			}
		}
		path = strings.TrimRight(path, ".,;)")
		key := method + " " + path
		if seen[key] {
			return
		}
		seen[key] = true
		found = append(found, describeEndpoint(text, method, path, start, end))
	}

	for _, m := range plainEndpointRe.FindAllStringSubmatchIndex(text, -1) {
		if insideSpan(curlSpans, m[0]) {
			continue
		}
		add(text[m[2]:m[3]], text[m[4]:m[5]], m[0], m[1])
	}
	for _, m := range markdownEndpointRe.FindAllStringSubmatchIndex(text, -1) {
		add(text[m[2]:m[3]], text[m[4]:m[5]], m[0], m[1])
	}
	for _, m := range noSlashEndpointRe.FindAllStringSubmatchIndex(text, -1) {
		if insideSpan(curlSpans, m[0]) {
			continue
		}
		raw := text[m[4]:m[5]]
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			continue
		}
		add(text[m[2]:m[3]], raw, m[0], m[1])
	}

	return found
}

// describeEndpoint annotates a match with facts from its surrounding
// context window.
func describeEndpoint(text, method, path string, start, end int) Endpoint {
	ws := start - windowBefore
	if ws < 0 {
		ws = 0
	}
	we := end + windowAfter
	if we > len(text) {
		we = len(text)
	}
	window := text[ws:we]

	ep := Endpoint{
		Method:   method,
		Path:     path,
		AuthHint: windowAuthRe.MatchString(window),
		HasCurl:  windowCurlRe.MatchString(window),
		Source:   "pattern",
	}
	if m := windowHeaderRe.FindStringSubmatch(window); m != nil {
		ep.Summary = strings.TrimSpace(strings.TrimLeft(m[1], "# "))
	}
	return ep
}

// curlFenceSpans returns [start,end) offsets of fenced code blocks whose
// body is a curl invocation. Endpoint-looking tokens inside them belong
// to the example, not the prose.
func curlFenceSpans(text string) [][2]int {
	var spans [][2]int
	for _, m := range fencedBlockRe.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		if curlBodyRe.MatchString(body) {
			spans = append(spans, [2]int{m[0], m[1]})
		}
	}
	return spans
}

func insideSpan(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
