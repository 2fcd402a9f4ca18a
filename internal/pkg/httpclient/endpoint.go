package httpclient

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBasePath is used when no base endpoint is configured.
const DefaultBasePath = "/api"

// NormalizeBasePath trims surrounding whitespace and strips exactly one trailing "/".
// An empty value falls back to DefaultBasePath.
func NormalizeBasePath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultBasePath
	}
	return strings.TrimSuffix(trimmed, "/")
}

// ResolveBaseURL turns the configured base into an absolute URL.
//
// An absolute http(s) base is used as-is (after normalization); a relative base such as
// "/api" is appended to origin, mirroring how a browser resolves it against the page origin.
func ResolveBaseURL(origin, base string) (string, error) {
	base = NormalizeBasePath(base)
	if hasHTTPScheme(base) {
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid api base url: %v", err)
		}
		if u.Host == "" {
			return "", fmt.Errorf("api base url missing host: %s", u.Redacted())
		}
		return base, nil
	}

	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", fmt.Errorf("api origin is required for relative base %q", base)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid api origin: %v", err)
	}
	if !hasHTTPScheme(origin) || u.Host == "" {
		return "", fmt.Errorf("api origin must be an absolute http(s) url, got %q", u.Redacted())
	}
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimRight(origin, "/") + base, nil
}

// JoinPath concatenates a normalized base with a fixed sub-path.
func JoinPath(base, path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func hasHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
