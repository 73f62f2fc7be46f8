package urlutil

import (
	"net/url"
	"strings"
)

// CanonicalBase applies a deterministic normalization to a gateway base URL.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Trailing slashes are removed from the path
//   - Query parameters and fragments are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: CanonicalBase(CanonicalBase(url)) == CanonicalBase(url)
func CanonicalBase(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	canonical.Path = stripTrailingSlash(canonical.Path)
	canonical.RawPath = ""

	canonical.RawQuery = ""
	canonical.ForceQuery = false
	canonical.Fragment = ""
	canonical.RawFragment = ""

	return canonical
}

// Join appends segment as the last path element of base. base is expected
// to be canonical (no trailing slash); leading slashes on segment are dropped.
func Join(base url.URL, segment string) string {
	joined := base
	joined.Path = base.Path + "/" + strings.TrimLeft(segment, "/")
	joined.RawPath = ""
	return joined.String()
}

// StripScheme removes a leading "scheme://" prefix, if any.
// "ipfs://bafy..." becomes "bafy...". Strings without a scheme are returned unchanged.
func StripScheme(s string) string {
	idx := strings.Index(s, "://")
	if idx <= 0 || !isScheme(s[:idx]) {
		return s
	}
	return s[idx+len("://"):]
}

// IsAbsoluteHTTP reports whether s already is an http(s) URL.
func IsAbsoluteHTTP(s string) bool {
	lower := lowerASCII(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// isScheme checks s against RFC 3986: ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )
func isScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return len(s) > 0
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 0 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
