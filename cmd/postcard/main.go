// Command postcard turns X post URLs into normalized post cards.
//
// Usage:
//
//	postcard fetch https://x.com/jack/status/20
//	postcard fetch demo
//	postcard serve --listen :8080 --cache-dir /var/cache/postcard
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/codeGROOVE-dev/postcard/pkg/config"
	"github.com/codeGROOVE-dev/postcard/pkg/extract"
	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/imageproxy"
	"github.com/codeGROOVE-dev/postcard/pkg/metrics"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/server"
	"github.com/codeGROOVE-dev/postcard/pkg/source"
)

var global config.Global

type fetchCommand struct {
	Args struct {
		Input string `positional-arg-name:"url" description:"Post URL or demo keyword"`
	} `positional-args:"yes" required:"yes"`
}

type serveCommand struct {
	config.Serve
}

func main() {
	parser := flags.NewParser(&global, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "X post card extractor"

	if _, err := parser.AddCommand("fetch", "Fetch one post", "Fetch one post and print it as JSON.", &fetchCommand{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("serve", "Run the HTTP API", "Serve the extraction API, image proxy and share endpoint.", &serveCommand{}); err != nil {
		panic(err)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if global.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newExtractor(logger *slog.Logger, m *metrics.Metrics) (*extract.Extractor, error) {
	httpcache.SetRateLimit(global.RateLimit, global.RateBurst)

	var file *config.File
	if global.Config != "" {
		var err error
		if file, err = config.LoadFile(global.Config); err != nil {
			return nil, err
		}
		logger.Debug("loaded config file", "path", global.Config, "sources", len(file.Sources))
	}

	client := &http.Client{Timeout: file.MaxTimeout(global.SourceTimeout) + time.Second}
	sources, err := file.BuildSources(client, source.WithLogger(logger), source.WithLang(global.Lang))
	if err != nil {
		return nil, err
	}

	return extract.New(
		extract.WithLogger(logger),
		extract.WithSources(sources...),
		extract.WithTimeout(global.SourceTimeout),
		extract.WithAvatarFallback(!global.NoAvatarFallback),
		extract.WithMetrics(m),
	), nil
}

// Execute implements flags.Commander.
func (c *fetchCommand) Execute(_ []string) error {
	logger := newLogger()
	ex, err := newExtractor(logger, nil)
	if err != nil {
		return err
	}

	p, err := ex.Extract(context.Background(), c.Args.Input)
	if err != nil {
		_, msg := post.StatusOf(err)
		logger.Debug("extraction failed", "error", err)
		return errors.New(msg)
	}
	return outputJSON(p)
}

// Execute implements flags.Commander.
func (c *serveCommand) Execute(_ []string) error {
	logger := newLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ex, err := newExtractor(logger, m)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAllowedOrigin(c.AllowedOrigin),
		server.WithSharePath(c.SharePath),
		server.WithRequestTimeout(c.RequestTimeout),
		server.WithGatherer(reg),
	}
	if !c.NoImageProxy {
		proxyOpts := []imageproxy.Option{
			imageproxy.WithLogger(logger),
			imageproxy.WithMetrics(m),
			imageproxy.WithAllowedHosts(c.ImageHosts...),
		}
		if c.CacheDir != "" {
			cache, err := httpcache.NewWithPath(c.CacheTTL, c.CacheDir)
			if err != nil {
				return fmt.Errorf("image cache: %w", err)
			}
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			proxyOpts = append(proxyOpts, imageproxy.WithCache(cache))
			logger.Info("image cache enabled", "dir", c.CacheDir, "ttl", c.CacheTTL.String())
		}
		opts = append(opts, server.WithImageProxy(imageproxy.New(proxyOpts...)))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              c.Listen,
		Handler:           server.New(ex, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", c.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
