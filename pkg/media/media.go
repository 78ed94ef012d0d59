// Package media canonicalizes avatar and content image URLs.
package media

import (
	"net/url"
	"regexp"
	"strings"
)

// CDNHost serves post media; its URLs accept format/size query parameters.
const CDNHost = "pbs.twimg.com/"

const largeJPEG = "?format=jpg&name=large"

// _normal (48px), _bigger (73px) and _mini (24px) variants.
var smallAvatarPattern = regexp.MustCompile(`(?i)_(?:normal|bigger|mini)(\.(?:jpg|jpeg|png|webp))$`)

// Avatar returns the high-resolution form of an avatar URL with its query string removed.
// Query parameters often carry session tokens that expire.
func Avatar(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	base, _, _ := strings.Cut(rawURL, "?")
	return smallAvatarPattern.ReplaceAllString(base, "_400x400${1}")
}

// FallbackAvatar returns an avatar lookup URL for a username.
func FallbackAvatar(username string) string {
	return "https://unavatar.io/twitter/" + url.PathEscape(username)
}

// ContentImages normalizes and deduplicates image URLs, preserving first-seen order.
// When urls holds no images, poster (a video poster frame) becomes the only image.
func ContentImages(urls []string, poster string) []string {
	candidates := urls
	if !hasAny(urls) && poster != "" {
		candidates = []string{poster}
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, u := range candidates {
		if u == "" {
			continue
		}
		u = contentImage(u)
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func contentImage(u string) string {
	if !strings.Contains(u, CDNHost) {
		return u
	}
	base, _, _ := strings.Cut(u, "?")
	return base + largeJPEG
}

func hasAny(urls []string) bool {
	for _, u := range urls {
		if u != "" {
			return true
		}
	}
	return false
}

// Proxied rewrites an absolute http(s) URL to go through the image proxy at base.
// Relative URLs and URLs already pointing at the proxy are returned unchanged.
func Proxied(base, rawURL string) string {
	if rawURL == "" || base == "" {
		return rawURL
	}
	if strings.HasPrefix(rawURL, "/") || !strings.HasPrefix(rawURL, "http") {
		return rawURL
	}
	return base + "?url=" + url.QueryEscape(rawURL)
}

// ProxiedAll applies Proxied to every URL.
func ProxiedAll(base string, urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if p := Proxied(base, u); p != "" {
			out = append(out, p)
		}
	}
	return out
}
