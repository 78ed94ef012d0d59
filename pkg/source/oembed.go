package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/codeGROOVE-dev/postcard/pkg/htmlutil"
	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/posturl"
)

// OEmbedName identifies the oEmbed adapter.
const OEmbedName = "oembed"

// OEmbed reads the publish endpoint. It still answers for very old posts but
// carries text only: no images, no avatar, no verification flag.
type OEmbed struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
}

// NewOEmbed creates the oEmbed adapter.
func NewOEmbed(client *http.Client, opts ...Option) *OEmbed {
	cfg := newConfig(opts)
	return &OEmbed{
		httpClient: defaultClient(client),
		logger:     cfg.logger,
		endpoint:   cfg.oembedBase + oembedPath,
	}
}

// Name implements Source.
func (*OEmbed) Name() string { return OEmbedName }

// Fetch implements Source.
func (o *OEmbed) Fetch(ctx context.Context, ref post.Ref) (*Raw, error) {
	q := url.Values{}
	q.Set("omit_script", "1")
	q.Set("url", posturl.Canonical(ref))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "application/json")

	body, err := httpcache.Fetch(ctx, o.httpClient, req, o.logger)
	if err != nil {
		return nil, fmt.Errorf("oembed fetch: %w", err)
	}
	return parseOEmbed(body)
}

func parseOEmbed(data []byte) (*Raw, error) {
	var resp struct {
		AuthorName string `json:"author_name"`
		AuthorURL  string `json:"author_url"`
		HTML       string `json:"html"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode oembed response: %w", err)
	}

	raw := &Raw{Name: resp.AuthorName}
	if resp.HTML == "" {
		return raw, nil
	}

	doc, err := htmlutil.Parse(resp.HTML)
	if err != nil {
		return nil, fmt.Errorf("parse oembed markup: %w", err)
	}
	raw.Text = htmlutil.PostParagraph(doc)
	raw.CreatedAt = parseDate(htmlutil.TrailingAnchorText(doc))
	return raw, nil
}
