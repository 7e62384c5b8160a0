package extract

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var openapiMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true,
	"delete": true, "options": true, "head": true,
}

// TryOpenAPI parses the text as an OpenAPI/Swagger document and walks
// its paths table. The pass is strictly best-effort: any parse failure
// or unexpected shape yields no endpoints rather than an error.
func TryOpenAPI(text string) []Endpoint {
	if !strings.Contains(text, "openapi:") && !strings.Contains(text, "swagger:") {
		return nil
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}

	paths, ok := doc["paths"].(map[string]interface{})
	if !ok {
		return nil
	}

	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var out []Endpoint
	for _, path := range pathKeys {
		ops, ok := paths[path].(map[string]interface{})
		if !ok {
			continue
		}
		methodKeys := make([]string, 0, len(ops))
		for m := range ops {
			methodKeys = append(methodKeys, m)
		}
		sort.Strings(methodKeys)

		for _, method := range methodKeys {
			if !openapiMethods[strings.ToLower(method)] {
				continue
			}
			ep := Endpoint{
				Method: strings.ToUpper(method),
				Path:   path,
				Source: "openapi",
			}
			if op, ok := ops[method].(map[string]interface{}); ok {
				if s, ok := op["summary"].(string); ok {
					ep.Summary = strings.TrimSpace(s)
				}
				if tags, ok := op["tags"].([]interface{}); ok {
					for _, t := range tags {
						if ts, ok := t.(string); ok {
							ep.Tags = append(ep.Tags, ts)
						}
					}
				}
				if sec, ok := op["security"]; ok && sec != nil {
					ep.AuthHint = true
				}
			}
			out = append(out, ep)
		}
	}
	return out
}
