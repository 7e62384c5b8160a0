package answer

import (
	"fmt"
	"strings"
)

const defaultExampleBody = `{"key": "value"}`

// SynthesizeCurl builds a curl command from endpoint facts alone, for
// when the documentation carries no example. Secrets and hosts are
// placeholders the caller is told to replace. An Authorization header
// is emitted only when the docs hinted the endpoint requires auth.
func SynthesizeCurl(method, endpoint, baseURL string, exampleBody string, authHint bool) string {
	base := "<BASE_URL>"
	if baseURL != "" {
		base = strings.TrimRight(baseURL, "/")
	}

	parts := []string{fmt.Sprintf("curl -X %s", method)}

	if bodyMethod(method) {
		parts = append(parts, "-H 'Content-Type: application/json'")
	}
	if authHint {
		parts = append(parts, "-H 'Authorization: Bearer <API_TOKEN>'")
	}

	if bodyMethod(method) {
		body := exampleBody
		if body == "" {
			body = defaultExampleBody
		}
		parts = append(parts, fmt.Sprintf("-d '%s'", body))
	}

	parts = append(parts, fmt.Sprintf("'%s%s'", base, endpoint))

	return strings.Join(parts, " \\\n")
}

func bodyMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}
