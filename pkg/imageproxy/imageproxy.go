// Package imageproxy serves post images from the same origin as the card
// renderer so that exported canvases are not tainted by cross-origin pixels.
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/metrics"
)

// Errors returned by Fetch.
var (
	ErrForbidden = errors.New("url not allowed")
	ErrNotImage  = errors.New("upstream did not return an image")
	ErrUpstream  = errors.New("upstream fetch failed")
)

// DefaultHosts are the image hosts posts link to.
var DefaultHosts = []string{"pbs.twimg.com", "abs.twimg.com", "video.twimg.com", "unavatar.io"}

// Image is a fetched image body with its sniffed content type.
type Image struct {
	ContentType string
	Data        []byte
}

// Proxy fetches allow-listed images.
type Proxy struct {
	cache      httpcache.Cacher
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	allowed    map[string]bool
}

// Option configures a Proxy.
type Option func(*config)

type config struct {
	cache      httpcache.Cacher
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	hosts      []string
}

// WithCache sets the response cache.
func WithCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithHTTPClient sets the upstream client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics records request results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithAllowedHosts replaces DefaultHosts.
func WithAllowedHosts(hosts ...string) Option {
	return func(c *config) { c.hosts = hosts }
}

// New creates a Proxy.
func New(opts ...Option) *Proxy {
	cfg := &config{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		hosts:      DefaultHosts,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	allowed := make(map[string]bool, len(cfg.hosts))
	for _, h := range cfg.hosts {
		allowed[strings.ToLower(h)] = true
	}
	return &Proxy{
		cache:      cfg.cache,
		httpClient: cfg.httpClient,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
		allowed:    allowed,
	}
}

// Fetch returns the image at rawURL.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	img, err := p.fetch(ctx, rawURL)
	switch {
	case err == nil:
		p.metrics.ImageProxy("ok")
	case errors.Is(err, ErrForbidden):
		p.metrics.ImageProxy("forbidden")
	case errors.Is(err, ErrNotImage):
		p.metrics.ImageProxy("not_image")
	default:
		p.metrics.ImageProxy("upstream_error")
	}
	return img, err
}

func (p *Proxy) fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := p.Validate(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "image/*")

	body, err := httpcache.FetchCached(ctx, p.cache, p.httpClient, req, p.logger, isImage)
	if err != nil {
		p.logger.WarnContext(ctx, "image fetch failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	mt := mimetype.Detect(body)
	if !isImageType(mt) {
		p.logger.DebugContext(ctx, "rejected non-image body", "url", rawURL, "type", mt.String())
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return &Image{ContentType: mt.String(), Data: body}, nil
}

// Validate checks that rawURL is an https URL on an allowed, public host.
func (p *Proxy) Validate(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrForbidden, u.Scheme)
	}
	if u.User != nil || u.Port() != "" {
		return nil, fmt.Errorf("%w: credentials or port in url", ErrForbidden)
	}
	host := strings.ToLower(u.Hostname())
	if err := checkPublicHost(host); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	if !p.allowed[host] {
		return nil, fmt.Errorf("%w: host %q", ErrForbidden, host)
	}
	return u, nil
}

func checkPublicHost(host string) error {
	if host == "localhost" || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return errors.New("local host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return errors.New("private IP")
		}
	}
	return nil
}

// SVG can carry script, so only raster formats pass.
func isImageType(mt *mimetype.MIME) bool {
	return strings.HasPrefix(mt.String(), "image/") && !mt.Is("image/svg+xml")
}

func isImage(body []byte) bool {
	return isImageType(mimetype.Detect(body))
}

// Status maps a Fetch error to the HTTP status the proxy endpoint returns.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadGateway
	}
}
