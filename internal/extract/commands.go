package extract

import (
	"regexp"
	"strings"
)

var standaloneCurlRe = regexp.MustCompile(`(?m)^(\s*curl\b(?:.|\n)*?)(?:\n\s*\n|\z)`)

// ExtractCurlExamples collects verbatim curl invocations: fenced code
// blocks whose body starts with curl, then standalone curl lines (with
// continuations up to the next blank line) outside any fence. Exact
// duplicate commands collapse to one.
func ExtractCurlExamples(text string) []CurlExample {
	seen := make(map[string]bool)
	var out []CurlExample

	fenceSpans := make([][2]int, 0)
	for _, m := range fencedBlockRe.FindAllStringSubmatchIndex(text, -1) {
		fenceSpans = append(fenceSpans, [2]int{m[0], m[1]})
		body := strings.TrimSpace(text[m[2]:m[3]])
		if !curlBodyRe.MatchString(body) {
			continue
		}
		if seen[body] {
			continue
		}
		seen[body] = true
		out = append(out, CurlExample{
			Code:    body,
			Context: nearestHeading(text, m[0]),
		})
	}

	for _, m := range standaloneCurlRe.FindAllStringSubmatchIndex(text, -1) {
		if insideSpan(fenceSpans, m[0]) {
			continue
		}
		code := strings.TrimSpace(text[m[2]:m[3]])
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, CurlExample{
			Code:    code,
			Context: nearestHeading(text, m[0]),
		})
	}

	return out
}

// nearestHeading returns the closest markdown heading above pos, used
// to label an example with the section it came from.
func nearestHeading(text string, pos int) string {
	head := text[:pos]
	matches := windowHeaderRe.FindAllStringSubmatch(head, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(matches[len(matches)-1][1], "# "))
}
