// Package textclean removes platform-injected media stub links from post text
// and normalizes its whitespace.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTrailingPasses = 10
	maxPasses         = 10
)

var (
	mediaStubPattern  = regexp.MustCompile(`(?i)(?:https?://)?pic\.twitter\.com/[a-z0-9]+`)
	trailingMediaStub = regexp.MustCompile(`(?i)(?:\s+|^)(?:https?://)?pic\.twitter\.com/[a-z0-9]+$`)
	trailingShortLink = regexp.MustCompile(`(?i)(?:\s+|^)(?:https?://)?t\.co/[a-z0-9]+$`)

	spaceBeforeNewline = regexp.MustCompile(`[ \t]+\n`)
	extraNewlines      = regexp.MustCompile(`\n{3,}`)
	horizontalRuns     = regexp.MustCompile(`[ \t]{2,}`)
)

// Options controls which stubs Clean may remove from the middle of the text.
type Options struct {
	// MediaShortLinks are t.co links known to point at attached media.
	MediaShortLinks []string
	// HasImages allows removing media stubs anywhere, not only at the end.
	HasImages bool
}

// Clean strips media stub links and normalizes whitespace.
// Short links in the middle of the text are kept unless they are known media stubs
// and the post has images. Clean is idempotent.
func Clean(raw string, opts Options) string {
	text := raw
	for range maxPasses {
		next := clean(text, opts)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func clean(text string, opts Options) string {
	if text == "" {
		return ""
	}

	if opts.HasImages {
		text = mediaStubPattern.ReplaceAllString(text, "")
		for _, short := range opts.MediaShortLinks {
			if short != "" {
				text = strings.ReplaceAll(text, short, "")
			}
		}
	}

	text = StripTrailingStubs(text)
	text = spaceBeforeNewline.ReplaceAllString(text, "\n")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = horizontalRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// StripTrailingStubs removes stacked pic.twitter.com and t.co links from the end of text.
func StripTrailingStubs(text string) string {
	text = trimRight(text)
	for range maxTrailingPasses {
		before := text
		text = trimRight(trailingMediaStub.ReplaceAllString(text, ""))
		text = trimRight(trailingShortLink.ReplaceAllString(text, ""))
		if text == before {
			break
		}
	}
	return text
}

func trimRight(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// BestText returns the longest non-blank candidate. Earlier candidates win ties.
func BestText(candidates ...string) string {
	best, bestLen := "", 0
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if n := utf8.RuneCountInString(c); n > bestLen {
			best, bestLen = c, n
		}
	}
	return best
}
