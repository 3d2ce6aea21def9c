package httputil

import (
	"net/http"
	"strings"
)

// ParseLinks parses RFC 8288 Link header values into a map of rel -> URL.
// Multiple header lines are merged; a link with several space-separated
// relations is registered under each of them. Malformed entries are skipped.
func ParseLinks(h http.Header) map[string]string {
	links := make(map[string]string)
	for _, value := range h.Values("Link") {
		for _, entry := range splitLinks(value) {
			target, params, ok := strings.Cut(entry, ";")
			target = strings.TrimSpace(target)
			if !ok || !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			target = target[1 : len(target)-1]
			for _, param := range strings.Split(params, ";") {
				key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(val), `"`)) {
					links[strings.ToLower(rel)] = target
				}
			}
		}
	}
	return links
}

// HasNextPage reports whether the Link header declares a rel="next" relation.
func HasNextPage(h http.Header) bool {
	_, ok := ParseLinks(h)["next"]
	return ok
}

// splitLinks splits a Link header value on commas that are outside <...>.
func splitLinks(value string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range value {
		switch c {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}
