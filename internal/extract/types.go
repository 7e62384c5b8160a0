package extract

// Endpoint is a single API operation recovered from documentation text.
// Method is always upper-case and Path always starts with "/".
type Endpoint struct {
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Summary  string   `json:"summary,omitempty"`
	AuthHint bool     `json:"auth_hint"`
	HasCurl  bool     `json:"has_curl"`
	Tags     []string `json:"tags,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// Key identifies an endpoint for dedup purposes.
func (e Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// CurlExample is a verbatim curl invocation lifted from the document.
type CurlExample struct {
	Code    string `json:"code"`
	Context string `json:"context,omitempty"`
}

// Merge combines several extraction passes, first writer wins per
// "METHOD path" key. Pass order therefore encodes trust order.
func Merge(passes ...[]Endpoint) []Endpoint {
	seen := make(map[string]bool)
	var out []Endpoint
	for _, pass := range passes {
		for _, ep := range pass {
			if seen[ep.Key()] {
				continue
			}
			seen[ep.Key()] = true
			out = append(out, ep)
		}
	}
	return out
}
