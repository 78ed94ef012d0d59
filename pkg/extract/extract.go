// Package extract turns a user-supplied post URL into a normalized post by
// trying each source adapter in priority order.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/postcard/pkg/media"
	"github.com/codeGROOVE-dev/postcard/pkg/metrics"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/posturl"
	"github.com/codeGROOVE-dev/postcard/pkg/source"
	"github.com/codeGROOVE-dev/postcard/pkg/textclean"
)

// DefaultTimeout bounds each adapter call. Three sequential adapters stay
// under the 30s lifetime of a serverless request.
const DefaultTimeout = 8 * time.Second

// Extractor runs the source cascade. It is safe for concurrent use.
type Extractor struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	sources        []source.Source
	timeout        time.Duration
	avatarFallback bool
}

// Option configures an Extractor.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	sources        []source.Source
	timeout        time.Duration
	avatarFallback bool
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithSources replaces the default adapter chain. Order is priority order.
func WithSources(sources ...source.Source) Option {
	return func(c *config) { c.sources = sources }
}

// WithTimeout sets the per-adapter timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMetrics records attempts and results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithClock overrides the clock used for missing and demo timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithAvatarFallback controls whether posts without an avatar get an unavatar.io lookup URL.
func WithAvatarFallback(enabled bool) Option {
	return func(c *config) { c.avatarFallback = enabled }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	cfg := &config{
		logger:         slog.Default(),
		now:            time.Now,
		timeout:        DefaultTimeout,
		avatarFallback: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.sources == nil {
		cfg.sources = source.Default(nil, source.WithLogger(cfg.logger))
	}

	return &Extractor{
		logger:         cfg.logger,
		metrics:        cfg.metrics,
		now:            cfg.now,
		sources:        cfg.sources,
		timeout:        cfg.timeout,
		avatarFallback: cfg.avatarFallback,
	}
}

// Extract resolves input to a post.
//
// Demo keywords return a canned post without touching the network. Anything
// else must be a post URL; otherwise a 400 *post.Error is returned. Adapters
// are tried once each, in order, and the first with usable content wins. When
// none does, a 503 *post.Error lists every attempt. If ctx ends first, its
// error is returned.
func (e *Extractor) Extract(ctx context.Context, input string) (*post.Post, error) {
	if p, ok := post.Sample(input, e.now()); ok {
		e.metrics.Extraction(metrics.ResultDemo)
		return p, nil
	}

	ref, err := posturl.Parse(input)
	if err != nil {
		e.metrics.Extraction(metrics.ResultInvalid)
		return nil, err
	}

	attempts := make([]post.Attempt, 0, len(e.sources))
	for _, src := range e.sources {
		if err := ctx.Err(); err != nil {
			e.metrics.Extraction(metrics.ResultCanceled)
			return nil, fmt.Errorf("extract %s: %w", ref.PostID, err)
		}

		p, err := e.try(ctx, src, ref)
		if err == nil {
			e.metrics.Extraction(metrics.ResultSuccess)
			e.logger.InfoContext(ctx, "post extracted", "source", src.Name(), "post_id", ref.PostID)
			return p, nil
		}
		attempts = append(attempts, post.Attempt{Source: src.Name(), Err: err})

		if ctxErr := ctx.Err(); ctxErr != nil {
			e.metrics.Extraction(metrics.ResultCanceled)
			return nil, fmt.Errorf("extract %s: %w", ref.PostID, ctxErr)
		}
	}

	e.metrics.Extraction(metrics.ResultExhausted)
	failure := post.Exhausted(attempts)
	e.logger.WarnContext(ctx, "all sources failed", "post_id", ref.PostID, "error", failure)
	return nil, failure
}

// try runs one adapter under its own timeout and assembles its result.
func (e *Extractor) try(ctx context.Context, src source.Source, ref post.Ref) (*post.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(src))
	defer cancel()

	start := time.Now()
	raw, err := src.Fetch(ctx, ref)
	elapsed := time.Since(start)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, post.ErrEmptyResult) {
			outcome = metrics.OutcomeEmpty
		}
		e.metrics.SourceAttempt(src.Name(), outcome, elapsed)
		e.logger.WarnContext(ctx, "source failed", "source", src.Name(), "post_id", ref.PostID, "error", err)
		return nil, err
	}

	p, err := e.assemble(raw, ref)
	if err != nil {
		e.metrics.SourceAttempt(src.Name(), metrics.OutcomeEmpty, elapsed)
		e.logger.InfoContext(ctx, "source returned nothing usable", "source", src.Name(), "post_id", ref.PostID)
		return nil, err
	}
	e.metrics.SourceAttempt(src.Name(), metrics.OutcomeSuccess, elapsed)
	return p, nil
}

// timeoutFor prefers a bound set with source.Timed over the extractor default.
func (e *Extractor) timeoutFor(src source.Source) time.Duration {
	if t, ok := src.(interface{ Timeout() time.Duration }); ok && t.Timeout() > 0 {
		return t.Timeout()
	}
	return e.timeout
}

// assemble normalizes an adapter record. It fails with post.ErrEmptyResult
// when the record has neither text nor images.
func (e *Extractor) assemble(raw *source.Raw, ref post.Ref) (*post.Post, error) {
	images := media.ContentImages(raw.Images, raw.Poster)
	text := textclean.Clean(raw.Text, textclean.Options{
		MediaShortLinks: raw.MediaShortLinks,
		HasImages:       len(images) > 0,
	})
	if text == "" && len(images) == 0 {
		return nil, post.ErrEmptyResult
	}

	name := raw.Name
	if name == "" {
		name = ref.Username
	}
	handle := raw.ScreenName
	if handle == "" {
		handle = ref.Username
	}
	avatar := media.Avatar(raw.Avatar)
	if avatar == "" && e.avatarFallback {
		avatar = media.FallbackAvatar(ref.Username)
	}
	created := raw.CreatedAt
	if created.IsZero() {
		created = e.now()
	}

	return &post.Post{
		Author: post.Author{
			Name:     name,
			Handle:   post.Handle(handle),
			Avatar:   avatar,
			Verified: raw.Verified,
		},
		Content:   post.Content{Text: text, Images: images},
		Timestamp: post.FormatTime(created),
	}, nil
}
