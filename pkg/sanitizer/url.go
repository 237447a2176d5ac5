package sanitizer

import (
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
)

// URLCanonicalizer rewrites listing links into the identity key used for
// exact-URL dedup. The tracking parameter denylist is fixed at construction.
type URLCanonicalizer struct {
	tracking map[string]struct{}
}

func NewURLCanonicalizer(trackingParams []string) *URLCanonicalizer {
	return &URLCanonicalizer{
		tracking: toSet(NormalizeStringSlice(trackingParams, strings.TrimSpace)),
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func IsHTTPLike(raw string) bool {
	s := strings.TrimSpace(raw)
	return hasPrefixFold(s, schemeHTTP) || hasPrefixFold(s, schemeHTTPS)
}

func (c *URLCanonicalizer) Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	s := trimmed
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	if hasPrefixFold(s, schemeHTTP) {
		s = schemeHTTPS + s[len(schemeHTTP):]
	}
	if !hasPrefixFold(s, schemeHTTPS) {
		return trimmed
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return trimmed
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	if after, ok := strings.CutPrefix(u.Host, "www."); ok && after != "" {
		u.Host = after
	}

	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	u.Fragment = ""
	u.RawFragment = ""

	u.RawQuery = c.stripTracking(u.RawQuery)
	u.ForceQuery = false

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	return u.String()
}

// stripTracking removes denylisted keys from a raw query string without
// re-encoding or reordering what remains.
func (c *URLCanonicalizer) stripTracking(rawQuery string) string {
	if rawQuery == "" || len(c.tracking) == 0 {
		return rawQuery
	}

	parts := strings.Split(rawQuery, "&")
	kept := parts[:0]
	for _, part := range parts {
		key, _, _ := strings.Cut(part, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if _, drop := c.tracking[key]; drop {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "&")
}

// URLKey is the exact-match dedup key: the canonical URL lowercased, since
// canonicalization leaves path case untouched.
func (c *URLCanonicalizer) URLKey(raw string) string {
	return strings.ToLower(c.Canonicalize(raw))
}

// Host returns the canonical host of an HTTP(S) link, or "" when the link
// does not canonicalize to one.
func (c *URLCanonicalizer) Host(raw string) string {
	canonical := c.Canonicalize(raw)
	if !hasPrefixFold(canonical, schemeHTTPS) {
		return ""
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
