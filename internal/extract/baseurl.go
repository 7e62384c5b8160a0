package extract

import "regexp"

var (
	primaryBaseURLRe = regexp.MustCompile(`https?://[a-zA-Z0-9_.:-]+(?:/v\d+)?`)

	baseURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://localhost:\d+(?:/v\d+)?`),
		regexp.MustCompile(`https?://127\.0\.0\.1:\d+(?:/v\d+)?`),
		regexp.MustCompile(`https?://[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)+(?::\d+)?(?:/v\d+)?`),
	}
)

// PrimaryBaseURL returns the first absolute URL mentioned in the text,
// trimmed to host plus an optional version prefix. Empty when the
// document never names a host.
func PrimaryBaseURL(text string) string {
	return primaryBaseURLRe.FindString(text)
}

const maxBaseURLs = 50

// AllBaseURLs collects distinct base URL forms in document order,
// capped so a link-heavy document cannot flood the answer surface.
func AllBaseURLs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range baseURLPatterns {
		for _, u := range re.FindAllString(text, -1) {
			if seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
			if len(out) >= maxBaseURLs {
				return out
			}
		}
	}
	return out
}
