package post

import (
	"strings"
	"time"
)

type sample struct {
	name, handle, text string
}

// Keywords that short-circuit extraction and return a canned post.
var samples = map[string]sample{
	"demo": {
		name:   "Design Systems",
		handle: "designsystems",
		text:   "Good design is invisible. Great design is unforgettable. The best design systems disappear into the background while making everything feel effortless.",
	},
	"startup": {
		name:   "Paul Graham",
		handle: "paulg",
		text:   "The best way to have startup ideas is to notice them organically. Live in the future and build what seems interesting.",
	},
	"code": {
		name:   "Guillermo Rauch",
		handle: "rauchg",
		text:   "Ship early, ship often. The best code is code that solves real problems for real users. Everything else is just practice.",
	},
	"ai": {
		name:   "Andrej Karpathy",
		handle: "karpathy",
		text:   "The hottest new programming language is English. Natural language interfaces are becoming the default way we interact with computers.",
	},
	"product": {
		name:   "Julie Zhuo",
		handle: "joulee",
		text:   "A product is never truly finished. It's a living thing that grows with your users. The best PMs know when to ship and when to iterate.",
	},
}

// Sample returns the canned post for a demo keyword.
// Matching is case-insensitive and ignores surrounding whitespace.
func Sample(input string, now time.Time) (*Post, bool) {
	s, ok := samples[strings.ToLower(strings.TrimSpace(input))]
	if !ok {
		return nil, false
	}
	return &Post{
		Author: Author{
			Name:     s.name,
			Handle:   Handle(s.handle),
			Avatar:   "https://unavatar.io/twitter/" + s.handle,
			Verified: true,
		},
		Content:   Content{Text: s.text, Images: []string{}},
		Timestamp: FormatTime(now),
	}, true
}

// IsSample reports whether input is a demo keyword.
func IsSample(input string) bool {
	_, ok := samples[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Placeholder returns the card shown before anything has been imported.
func Placeholder() *Post {
	return &Post{
		Author: Author{
			Name:   "Brad Radius",
			Handle: "@bradradius",
			Avatar: "/avatars/avatarBrad.png",
		},
		Content: Content{
			Text:   "Just spent 45 minutes adjusting the border radius on a button by 0.5px and honestly? Chef's kiss. This is what separates us from the animals.",
			Images: []string{},
		},
		Timestamp: "2026-01-22T23:37:00Z",
	}
}
