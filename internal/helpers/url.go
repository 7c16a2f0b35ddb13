package helpers

import (
	"net/url"
	"strings"
)

// SourceHost returns the lowercased host of raw without a leading "www.".
// Schemeless inputs such as "example.com/path" are treated as https.
// It returns "" when no host can be derived.
func SourceHost(raw string) string {
	parsed, err := parseURLPreserveHost(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// LinkKey is the comparison key for source links: trimmed and case-folded.
func LinkKey(link string) string {
	return strings.ToLower(strings.TrimSpace(link))
}

// IsWebURL reports whether raw parses as an absolute http(s) URL with a host.
func IsWebURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}

func parseURLPreserveHost(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		if strings.HasPrefix(raw, "//") {
			return url.Parse("https:" + raw)
		}
		return url.Parse("https://" + raw)
	}
	return parsed, nil
}
