package source

import (
	"strings"
)

// MediaRule names a list inside a syndication payload and the fields of its
// entries that may carry an image URL. The first non-empty field wins.
type MediaRule struct {
	Path   []string
	Fields []string
}

var genericMediaFields = []string{"media_url_https", "media_url", "url", "mediaUrl", "src"}

// MediaRules are evaluated in order. The payload shape varies between posts,
// so the generic lists are tried with every field X has been seen to use.
var MediaRules = []MediaRule{
	{Path: []string{"photos"}, Fields: []string{"url"}},
	{Path: []string{"mediaDetails"}, Fields: []string{"media_url_https"}},
	{Path: []string{"entities", "media"}, Fields: genericMediaFields},
	{Path: []string{"extended_entities", "media"}, Fields: genericMediaFields},
	{Path: []string{"media"}, Fields: genericMediaFields},
	{Path: []string{"media_details"}, Fields: genericMediaFields},
}

// ApplyMediaRules collects image URLs from a decoded JSON payload in rule order.
// Duplicates are kept; callers normalize and dedupe.
func ApplyMediaRules(payload map[string]any, rules []MediaRule) []string {
	var out []string
	for _, rule := range rules {
		list, ok := lookup(payload, rule.Path...).([]any)
		if !ok {
			continue
		}
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			for _, field := range rule.Fields {
				if u := str(m, field); u != "" {
					out = append(out, u)
					break
				}
			}
		}
	}
	return out
}

// mediaShortLinks returns entities.urls[].url entries whose target is attached
// media rather than an outbound link.
func mediaShortLinks(payload map[string]any) []string {
	urls, ok := lookup(payload, "entities", "urls").([]any)
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, entry := range urls {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		short := str(m, "url")
		display, expanded := str(m, "display_url"), str(m, "expanded_url")
		isMedia := strings.Contains(display, "pic.twitter.com") ||
			strings.Contains(expanded, "pic.twitter.com") ||
			(strings.Contains(expanded, "twitter.com/") && strings.Contains(expanded, "/photo/"))
		if isMedia && short != "" && !seen[short] {
			seen[short] = true
			out = append(out, short)
		}
	}
	return out
}

// lookup walks nested objects by key. Returns nil when any step is missing.
func lookup(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// str returns the string at path, or "" if absent or not a string.
func str(v any, path ...string) string {
	s, _ := lookup(v, path...).(string)
	return s
}

// truthy reports whether the value at path is JSON true.
func truthy(v any, path ...string) bool {
	b, _ := lookup(v, path...).(bool)
	return b
}
