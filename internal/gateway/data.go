package gateway

import "net/http"

const DefaultAuthHeaderName = "Authorization"

// Endpoint is one configured gateway base.
// AuthHeader, when set, is attached to requests sent to this endpoint only.
type Endpoint struct {
	BaseURL        string
	AuthHeader     string
	AuthHeaderName string
}

func (e Endpoint) headerName() string {
	if e.AuthHeaderName == "" {
		return DefaultAuthHeaderName
	}
	return e.AuthHeaderName
}

// Target is one candidate retrieval location for an identifier.
// Endpoint is the zero value for absolute URLs that bypass the gateway chain.
type Target struct {
	URL      string
	Endpoint Endpoint
}

// Apply attaches the endpoint's auth header to req, if the endpoint has one.
func (t Target) Apply(req *http.Request) {
	if t.Endpoint.AuthHeader == "" {
		return
	}
	req.Header.Set(t.Endpoint.headerName(), t.Endpoint.AuthHeader)
}

// Gateway reports the base URL that serves this target, empty for direct URLs.
func (t Target) Gateway() string {
	return t.Endpoint.BaseURL
}
