package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/postcard/pkg/htmlutil"
	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/media"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
)

// EmbedName identifies the syndication embed HTML adapter.
const EmbedName = "embed"

const profileImagesMarker = "profile_images"

// Embed scrapes the HTML rendering of a post from the syndication host.
// It does not expose the display name, so Name is left empty.
type Embed struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	lang       string
}

// NewEmbed creates the embed HTML adapter.
func NewEmbed(client *http.Client, opts ...Option) *Embed {
	cfg := newConfig(opts)
	return &Embed{
		httpClient: defaultClient(client),
		logger:     cfg.logger,
		endpoint:   cfg.syndicationBase + embedPath,
		lang:       cfg.lang,
	}
}

// Name implements Source.
func (*Embed) Name() string { return EmbedName }

// Fetch implements Source.
func (e *Embed) Fetch(ctx context.Context, ref post.Ref) (*Raw, error) {
	q := url.Values{}
	q.Set("id", ref.PostID)
	q.Set("lang", e.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Referer", platformReferer)
	req.Header.Set("Accept", "text/html,*/*;q=0.8")

	body, err := httpcache.Fetch(ctx, e.httpClient, req, e.logger)
	if err != nil {
		return nil, fmt.Errorf("embed fetch: %w", err)
	}
	e.logger.DebugContext(ctx, "embed markup", "preview", htmlutil.Preview(string(body), 120))
	return parseEmbed(string(body))
}

func parseEmbed(markup string) (*Raw, error) {
	doc, err := htmlutil.Parse(markup)
	if err != nil {
		return nil, fmt.Errorf("parse embed markup: %w", err)
	}

	raw := &Raw{Text: htmlutil.PostParagraph(doc)}
	for _, src := range htmlutil.ImageSources(doc) {
		switch {
		case strings.Contains(src, profileImagesMarker):
			if raw.Avatar == "" {
				raw.Avatar = src
			}
		case strings.Contains(src, media.CDNHost):
			raw.Images = append(raw.Images, src)
		default:
		}
	}
	return raw, nil
}
