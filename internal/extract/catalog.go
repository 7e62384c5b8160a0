package extract

import (
	"fmt"
	"strings"
)

// BuildCatalogText renders the endpoint inventory as one markdown
// table. The catalog is indexed as a single retrievable document so
// exhaustive "list everything" questions can be grounded on one hit.
func BuildCatalogText(title string, endpoints []Endpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s - API Catalog\n\n", title)
	b.WriteString("Method | Path | Summary | Auth | Has cURL\n")
	b.WriteString("--- | --- | --- | --- | ---\n")
	for _, ep := range endpoints {
		summary := ep.Summary
		if summary == "" {
			summary = "-"
		}
		fmt.Fprintf(&b, "%s | %s | %s | %s | %s\n",
			ep.Method, ep.Path, summary, yesNo(ep.AuthHint), yesNo(ep.HasCurl))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
