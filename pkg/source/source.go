// Package source fetches a single post from the public X endpoints.
//
// Each adapter makes exactly one upstream request per Fetch and returns the
// fields it could read as a Raw record. Adapters keep no state between calls.
package source

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/postcard/pkg/post"
)

// Upstream endpoints.
const (
	syndicationHost = "https://cdn.syndication.twimg.com"
	oembedHost      = "https://publish.twitter.com"

	syndicationPath = "/tweet-result"
	embedPath       = "/tweet"
	oembedPath      = "/oembed"

	platformReferer = "https://platform.twitter.com/"
)

// Source fetches one post from one upstream.
type Source interface {
	Name() string
	Fetch(ctx context.Context, ref post.Ref) (*Raw, error)
}

// Raw is what an adapter could read about a post, before normalization.
// Empty fields mean the upstream did not provide them.
type Raw struct {
	CreatedAt       time.Time
	Name            string
	ScreenName      string
	Avatar          string
	Text            string
	Poster          string
	Images          []string
	MediaShortLinks []string
	Verified        bool
}

// Option configures an adapter.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	syndicationBase string
	oembedBase      string
	lang            string
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLang sets the language tag sent to the syndication endpoints.
// Tags that do not parse as BCP 47 fall back to "en".
func WithLang(tag string) Option {
	return func(c *config) { c.lang = tag }
}

// WithBaseURL points every adapter at one host. Intended for tests.
func WithBaseURL(base string) Option {
	return func(c *config) {
		c.syndicationBase = base
		c.oembedBase = base
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:          slog.Default(),
		syndicationBase: syndicationHost,
		oembedBase:      oembedHost,
		lang:            "en",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	tag, err := language.Parse(cfg.lang)
	if err != nil {
		cfg.logger.Warn("invalid language tag, using en", "lang", cfg.lang, "error", err)
		tag = language.English
	}
	cfg.lang = tag.String()
	return cfg
}

// Default returns the adapters in the order they should be tried.
func Default(client *http.Client, opts ...Option) []Source {
	return []Source{
		NewSyndication(client, opts...),
		NewEmbed(client, opts...),
		NewOEmbed(client, opts...),
	}
}

// Names lists the adapter names in the order Default returns them.
func Names() []string {
	return []string{SyndicationName, EmbedName, OEmbedName}
}

// ByName returns a new adapter with the given name.
func ByName(client *http.Client, name string, opts ...Option) (Source, bool) {
	switch name {
	case SyndicationName:
		return NewSyndication(client, opts...), true
	case EmbedName:
		return NewEmbed(client, opts...), true
	case OEmbedName:
		return NewOEmbed(client, opts...), true
	default:
		return nil, false
	}
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Timed bounds every Fetch of s by d, on top of any deadline the caller sets.
// The returned Source reports d from its Timeout method so callers can use it
// in place of their own default.
func Timed(s Source, d time.Duration) Source {
	if d <= 0 {
		return s
	}
	return &timed{Source: s, timeout: d}
}

type timed struct {
	Source
	timeout time.Duration
}

// Timeout returns the bound set by Timed.
func (t *timed) Timeout() time.Duration { return t.timeout }

func (t *timed) Fetch(ctx context.Context, ref post.Ref) (*Raw, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Source.Fetch(ctx, ref)
}
