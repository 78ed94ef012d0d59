// Package posturl recognizes X/Twitter post URLs.
package posturl

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/postcard/pkg/post"
)

// Only these two hosts are accepted; anything else is not a post URL.
var postPattern = regexp.MustCompile(`(?i)^https?://(?:twitter\.com|x\.com)/(\w+)/status/(\d+)(?:[/?#]|$)`)

// Parse decomposes a post URL into its username and numeric post id.
// Trailing path segments, query strings and fragments are ignored.
func Parse(raw string) (post.Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return post.Ref{}, post.InvalidInput(post.MsgEmptyInput)
	}
	m := postPattern.FindStringSubmatch(s)
	if m == nil {
		return post.Ref{}, post.InvalidInput(post.MsgInvalidURL)
	}
	return post.Ref{Username: m[1], PostID: m[2]}, nil
}

// Canonical returns the twitter.com form of a post URL, which oEmbed accepts for posts of any age.
func Canonical(ref post.Ref) string {
	return "https://twitter.com/" + ref.Username + "/status/" + ref.PostID
}
