package intent

import (
	"regexp"
	"strings"
)

// Intent buckets a question into one of the answer paths.
type Intent string

const (
	ComprehensiveList Intent = "comprehensive_list"
	ListAPIs          Intent = "list_apis"
	GetPayload        Intent = "get_payload"
	FindCurl          Intent = "find_curl"
	GenerateCurl      Intent = "generate_curl"
	CountAPIs         Intent = "count_apis"
	ListBaseURLs      Intent = "list_base_urls"
	Other             Intent = "other"
)

// Deterministic reports whether the intent is answered from extracted
// facts alone, with no completion call.
func (i Intent) Deterministic() bool {
	switch i {
	case ListAPIs, CountAPIs, ListBaseURLs:
		return true
	}
	return false
}

var (
	comprehensiveSignals = []string{
		"all apis", "all endpoints", "complete list", "full list", "entire api", "every endpoint",
		"list all", "show all", "display all", "enumerate all", "comprehensive list", "complete api list",
	}
	comprehensiveQuantifiers = []string{"all", "complete", "full", "entire"}
	comprehensiveTargets     = []string{"api", "endpoint", "list", "show", "display"}

	listSignals = []string{
		"list apis", "list endpoints", "list api endpoints", "available apis", "available endpoints",
		"api list", "endpoints list",
	}
	listVerbs = []string{"list", "show", "display", "enumerate"}

	payloadSignals = []string{
		"payload", "request body", "request schema", "response schema", "response body",
		"fields required", "parameters",
	}

	generateSignals = []string{"generate", "create", "make", "build", "write"}
	findSignals     = []string{"find", "show", "present", "any", "existing", "example", "available", "list", "all"}

	countSignals = []string{"how many apis", "count apis", "number of apis", "api count", "endpoint count"}

	baseURLSignals = []string{"base url", "base urls", "list base urls", "api url", "api urls"}
)

// Classify maps a question to an intent by priority-ordered keyword
// matching. The first bucket that fires wins, so exhaustive-listing
// phrasing outranks the narrower buckets it overlaps with.
func Classify(question string) Intent {
	q := strings.ToLower(question)

	if containsAny(q, comprehensiveSignals) ||
		(containsAny(q, comprehensiveQuantifiers) && containsAny(q, comprehensiveTargets)) {
		return ComprehensiveList
	}

	if containsAny(q, listSignals) ||
		(strings.Contains(q, "endpoint") && containsAny(q, listVerbs)) {
		return ListAPIs
	}

	if containsAny(q, payloadSignals) {
		return GetPayload
	}

	if strings.Contains(q, "curl") {
		if containsAny(q, generateSignals) {
			return GenerateCurl
		}
		if containsAny(q, findSignals) {
			return FindCurl
		}
		return Other
	}

	if containsAny(q, countSignals) {
		return CountAPIs
	}
	if containsAny(q, baseURLSignals) {
		return ListBaseURLs
	}
	return Other
}

func containsAny(q string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(q, s) {
			return true
		}
	}
	return false
}

// Operation is an explicit "METHOD /path" reference inside a question.
// Path is empty when only a method is named, as in "curl for the PUT
// endpoints".
type Operation struct {
	Method string
	Path   string
}

var (
	explicitOpRe     = regexp.MustCompile(`(?i)\b(GET|POST|PUT|PATCH|DELETE|OPTIONS|HEAD)\s+(/[^\s#]+)`)
	explicitMethodRe = regexp.MustCompile(`(?i)\b(GET|POST|PUT|PATCH|DELETE|OPTIONS|HEAD)\b`)
)

// ParseOperation pulls an explicit endpoint reference out of a
// question, if one is present.
func ParseOperation(question string) *Operation {
	if m := explicitOpRe.FindStringSubmatch(question); m != nil {
		return &Operation{Method: strings.ToUpper(m[1]), Path: m[2]}
	}
	if m := explicitMethodRe.FindStringSubmatch(question); m != nil {
		return &Operation{Method: strings.ToUpper(m[1])}
	}
	return nil
}
