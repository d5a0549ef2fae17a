package routes

import (
	"net/url"
	"strings"
)

// Normalization is shared by the write path (coordinator) and the read path
// (redirect handler). Any divergence between the two silently breaks
// lookups, so both must go through these functions and nothing else.

// NormalizeHost strips everything from the first ':' onward (port suffix),
// trims whitespace and lower-cases. Idempotent and total.
func NormalizeHost(raw string) string {
	host := raw
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.ToLower(strings.TrimSpace(host))
}

// NormalizePath percent-decodes, strips trailing slashes and canonicalizes
// empty or all-slash inputs to "/". Decoding failures degrade to the raw
// string rather than erroring.
func NormalizePath(raw string) string {
	path := raw
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return path
}

// CacheKey builds the route cache key for an already fully-qualified host.
func CacheKey(host, path string) string {
	return NormalizeHost(host) + ":" + NormalizePath(path)
}

// QualifyHost maps a route's relative host token onto the hire's base
// domain: "apex" is the bare base, "www" is www.<base>, any other token is
// treated as a subdomain label.
func QualifyHost(host, baseDomain string) string {
	base := NormalizeHost(baseDomain)
	switch token := NormalizeHost(host); token {
	case "apex", "":
		return base
	case "www":
		return "www." + base
	default:
		return token + "." + base
	}
}
