package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/codeGROOVE-dev/postcard/pkg/htmlutil"
	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/textclean"
)

// SyndicationName identifies the syndication JSON adapter.
const SyndicationName = "syndication"

// featureFlags is the features cookie the embed widget sends. Without it the
// endpoint omits fields such as note_tweet.
var featureFlags = []string{
	"tfw_timeline_list:",
	"tfw_follower_count_sunset:true",
	"tfw_tweet_edit_backend:on",
	"tfw_refsrc_session:on",
	"tfw_fosnr_soft_interventions_enabled:on",
	"tfw_show_birdwatch_pivots_enabled:on",
	"tfw_show_business_verified_badge:on",
	"tfw_duplicate_scribes_to_settings:on",
	"tfw_use_profile_image_shape_enabled:on",
	"tfw_show_blue_verified_badge:on",
	"tfw_legacy_timeline_sunset:true",
	"tfw_show_gov_verified_badge:on",
	"tfw_show_business_affiliate_badge:on",
	"tfw_tweet_edit_frontend:on",
}

// Syndication reads the structured JSON the embed widget uses.
type Syndication struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	lang       string
}

// NewSyndication creates the syndication JSON adapter.
func NewSyndication(client *http.Client, opts ...Option) *Syndication {
	cfg := newConfig(opts)
	return &Syndication{
		httpClient: defaultClient(client),
		logger:     cfg.logger,
		endpoint:   cfg.syndicationBase + syndicationPath,
		lang:       cfg.lang,
	}
}

// Name implements Source.
func (*Syndication) Name() string { return SyndicationName }

// Fetch implements Source.
func (s *Syndication) Fetch(ctx context.Context, ref post.Ref) (*Raw, error) {
	q := url.Values{}
	q.Set("id", ref.PostID)
	q.Set("lang", s.lang)
	q.Set("token", Token(ref.PostID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Referer", platformReferer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", "features="+strings.Join(featureFlags, ";"))

	body, err := httpcache.Fetch(ctx, s.httpClient, req, s.logger)
	if err != nil {
		return nil, fmt.Errorf("syndication fetch: %w", err)
	}
	return parseSyndication(body)
}

func parseSyndication(data []byte) (*Raw, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode syndication response: %w", err)
	}
	if len(payload) == 0 {
		return nil, post.ErrEmptyResult
	}

	raw := &Raw{
		Name:       str(payload, "user", "name"),
		ScreenName: str(payload, "user", "screen_name"),
		Avatar:     str(payload, "user", "profile_image_url_https"),
		Verified:   truthy(payload, "user", "verified") || truthy(payload, "user", "is_blue_verified"),
		Text: htmlutil.DecodeEntities(textclean.BestText(
			str(payload, "note_tweet", "text"),
			str(payload, "note_tweet", "note_tweet_results", "result", "text"),
			str(payload, "full_text"),
			str(payload, "text"),
		)),
		Images:          ApplyMediaRules(payload, MediaRules),
		Poster:          str(payload, "video", "poster"),
		MediaShortLinks: mediaShortLinks(payload),
		CreatedAt:       parseDate(str(payload, "created_at")),
	}
	return raw, nil
}

// parseDate parses the loosely formatted dates X emits. Returns the zero time
// if s cannot be read.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
