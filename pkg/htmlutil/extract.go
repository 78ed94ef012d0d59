// Package htmlutil provides HTML processing utilities for post embed markup.
//
// Documents are parsed once into an immutable tree; nothing here mutates a
// document or keeps parser state between calls.
package htmlutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// Parse builds a document from an HTML string or fragment.
func Parse(htmlContent string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
}

// PostParagraph returns the text of the paragraph holding the post body:
// the first <p> whose class mentions "tweet-text", else the first <p>.
// Line breaks become newlines; tags are dropped and entities decoded.
func PostParagraph(doc *goquery.Document) string {
	paragraphs := doc.Find("p")
	target := paragraphs.FilterFunction(func(_ int, p *goquery.Selection) bool {
		class, _ := p.Attr("class")
		return strings.Contains(strings.ToLower(class), "tweet-text")
	}).First()
	if target.Length() == 0 {
		target = paragraphs.First()
	}
	if target.Length() == 0 {
		return ""
	}
	return BlockText(target)
}

// BlockText flattens a selection to text, turning <br> into newlines.
func BlockText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func writeText(b *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		b.WriteString(n.Data)
		return
	case nethtml.ElementNode:
		if n.Data == "br" {
			b.WriteByte('\n')
			return
		}
	default:
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// ImageSources returns every non-empty <img src> in document order.
func ImageSources(doc *goquery.Document) []string {
	var out []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			out = append(out, src)
		}
	})
	return out
}

// TrailingAnchorText returns the text of a link that closes the last <blockquote>,
// as oEmbed markup does with the post date. Returns "" if the blockquote ends otherwise.
func TrailingAnchorText(doc *goquery.Document) string {
	contents := doc.Find("blockquote").Last().Contents()
	for i := contents.Length() - 1; i >= 0; i-- {
		node := contents.Eq(i)
		switch goquery.NodeName(node) {
		case "#text":
			if strings.TrimSpace(node.Text()) == "" {
				continue
			}
			return ""
		case "a":
			return strings.TrimSpace(node.Text())
		default:
			return ""
		}
	}
	return ""
}

// DecodeEntities decodes the five entities X escapes in plain-text fields.
// Each entity is decoded once; "&amp;lt;" becomes "&lt;".
func DecodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// StripTags removes HTML tags and returns collapsed plain text.
func StripTags(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	content := tagPattern.ReplaceAllString(htmlContent, " ")
	content = html.UnescapeString(content)
	content = multiSpacePattern.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// Preview returns at most n characters of plain text from an HTML body, for logs.
func Preview(htmlContent string, n int) string {
	text := StripTags(htmlContent)
	if r := []rune(text); len(r) > n {
		return string(r[:n]) + "…"
	}
	return text
}
