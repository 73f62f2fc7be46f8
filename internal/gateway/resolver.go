package gateway

import (
	"net/url"

	"github.com/rohmanhakim/listing-enricher/internal/identifier"
	"github.com/rohmanhakim/listing-enricher/pkg/urlutil"
)

/*
Responsibilities

- Map an identifier to its ordered candidate URLs
- Keep the configured order: primary first, then fallbacks
- Scope auth headers to the endpoint that declared them

The resolver never performs I/O. It is built once at startup and is
read-only afterwards, so it is safe for concurrent use.
*/

type Resolver struct {
	endpoints []Endpoint
	bases     []url.URL
}

// NewResolver validates the endpoint list. An empty list, a base that is
// not an absolute http(s) URL, or a base with a query string is a
// configuration error.
func NewResolver(endpoints []Endpoint) (*Resolver, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoGateways
	}

	resolver := &Resolver{
		endpoints: make([]Endpoint, 0, len(endpoints)),
		bases:     make([]url.URL, 0, len(endpoints)),
	}

	for _, endpoint := range endpoints {
		parsed, err := url.Parse(endpoint.BaseURL)
		if err != nil {
			return nil, invalidGateway(endpoint.BaseURL, err.Error())
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, invalidGateway(endpoint.BaseURL, "scheme must be http or https")
		}
		if parsed.Host == "" {
			return nil, invalidGateway(endpoint.BaseURL, "missing host")
		}
		// target URLs must end with the identifier; tokens go in the auth header
		if parsed.RawQuery != "" || parsed.ForceQuery {
			return nil, invalidGateway(endpoint.BaseURL, "query strings are not supported, use an auth header")
		}

		canonical := urlutil.CanonicalBase(*parsed)
		endpoint.BaseURL = canonical.String()
		resolver.endpoints = append(resolver.endpoints, endpoint)
		resolver.bases = append(resolver.bases, canonical)
	}

	return resolver, nil
}

// Endpoints returns a copy of the canonicalized endpoint list.
func (r *Resolver) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Resolve returns the candidate targets for id in fetch order.
// Ill-formed identifiers yield nil. Absolute http(s) URLs yield a single
// target pointing at the URL itself, with no gateway and no auth.
func (r *Resolver) Resolve(id string) []Target {
	classification := identifier.Validate(id)
	if classification.AbsoluteURL {
		return []Target{{URL: id}}
	}
	if !classification.WellFormed {
		return nil
	}

	targets := make([]Target, 0, len(r.bases))
	for i, base := range r.bases {
		targets = append(targets, Target{
			URL:      urlutil.Join(base, classification.Normalized),
			Endpoint: r.endpoints[i],
		})
	}
	return targets
}

// URLs is Resolve without the endpoint details.
func (r *Resolver) URLs(id string) []string {
	targets := r.Resolve(id)
	if len(targets) == 0 {
		return nil
	}
	urls := make([]string, len(targets))
	for i, target := range targets {
		urls[i] = target.URL
	}
	return urls
}
