package crawler

import (
	"net/url"
	"strings"
)

// ResolveURL turns a raw href into the canonical absolute form used for
// frontier and visited-set membership: fragment stripped, scheme-relative
// links given the base scheme, relative links joined against the base, and
// trailing slash trimmed. Non-http(s) results resolve to "".
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if i := strings.Index(href, "#"); i >= 0 {
		href = href[:i]
	}
	if href == "" {
		return ""
	}

	var resolved string
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		resolved = href
	case strings.HasPrefix(href, "//"):
		base, err := url.Parse(baseURL)
		if err != nil {
			return ""
		}
		resolved = base.Scheme + ":" + href
	default:
		base, err := url.Parse(baseURL)
		if err != nil {
			return ""
		}
		rel, err := url.Parse(href)
		if err != nil {
			return ""
		}
		resolved = base.ResolveReference(rel).String()
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	parsed.Fragment = ""
	return strings.TrimSuffix(parsed.String(), "/")
}
