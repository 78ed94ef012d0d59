// Package server exposes extraction, the image proxy and share links over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeGROOVE-dev/postcard/pkg/imageproxy"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
)

// ImagePath is where the image proxy is mounted.
const ImagePath = "/api/image"

// DefaultRequestTimeout bounds one extraction request end to end.
const DefaultRequestTimeout = 30 * time.Second

// Extractor resolves user input to a post.
type Extractor interface {
	Extract(ctx context.Context, input string) (*post.Post, error)
}

// ImageFetcher fetches proxied images.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*imageproxy.Image, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	extractor      Extractor
	images         ImageFetcher
	gatherer       prometheus.Gatherer
	logger         *slog.Logger
	allowedOrigin  string
	sharePath      string
	requestTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithImageProxy enables /api/image and rewrites post image URLs to use it.
func WithImageProxy(images ImageFetcher) Option {
	return func(s *Server) { s.images = images }
}

// WithGatherer serves metrics from g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithAllowedOrigin sets the CORS origin. Defaults to "*".
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

// WithSharePath sets the page share links point at. Defaults to "/share".
func WithSharePath(path string) Option {
	return func(s *Server) { s.sharePath = path }
}

// WithRequestTimeout bounds each extraction request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// New creates a Server.
func New(extractor Extractor, opts ...Option) *Server {
	s := &Server{
		extractor:      extractor,
		logger:         slog.Default(),
		allowedOrigin:  "*",
		sharePath:      "/share",
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gin engine with every route configured.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger())
	r.Use(gin.Recovery())
	r.Use(s.cors())

	api := r.Group("/api")
	{
		api.POST("/scrape-post", s.scrapePost)
		api.GET("/share", s.sharePost)
		if s.images != nil {
			api.GET("/image", s.proxyImage)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", s.allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
