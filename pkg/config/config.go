// Package config holds command-line options and the optional YAML file that
// tunes the source chain.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/postcard/pkg/source"
)

// Global options shared by every command.
type Global struct {
	Config           string        `long:"config" env:"POSTCARD_CONFIG" description:"YAML file with per-source settings"`
	Lang             string        `long:"lang" env:"POSTCARD_LANG" default:"en" description:"Language tag requested from upstreams"`
	SourceTimeout    time.Duration `long:"source-timeout" env:"POSTCARD_SOURCE_TIMEOUT" default:"8s" description:"Timeout for each source attempt"`
	RateLimit        float64       `long:"rate-limit" env:"POSTCARD_RATE_LIMIT" default:"5" description:"Upstream requests per second per host (0 disables)"`
	RateBurst        int           `long:"rate-burst" env:"POSTCARD_RATE_BURST" default:"10" description:"Upstream request burst per host"`
	NoAvatarFallback bool          `long:"no-avatar-fallback" env:"POSTCARD_NO_AVATAR_FALLBACK" description:"Leave avatar empty instead of using unavatar.io"`
	Debug            bool          `long:"debug" env:"POSTCARD_DEBUG" description:"Enable debug logging"`
}

// Serve options for the HTTP server.
type Serve struct {
	Listen         string        `long:"listen" env:"POSTCARD_LISTEN" default:":8080" description:"HTTP listen address"`
	AllowedOrigin  string        `long:"allowed-origin" env:"ALLOWED_ORIGIN" default:"*" description:"CORS allowed origin"`
	SharePath      string        `long:"share-path" env:"POSTCARD_SHARE_PATH" default:"/share" description:"Page that share links point at"`
	RequestTimeout time.Duration `long:"request-timeout" env:"POSTCARD_REQUEST_TIMEOUT" default:"30s" description:"Timeout for one extraction request"`
	CacheDir       string        `long:"cache-dir" env:"POSTCARD_CACHE_DIR" description:"Directory for the image cache (disabled if empty)"`
	CacheTTL       time.Duration `long:"cache-ttl" env:"POSTCARD_CACHE_TTL" default:"24h" description:"Image cache TTL"`
	ImageHosts     []string      `long:"image-host" env:"POSTCARD_IMAGE_HOSTS" env-delim:"," default:"pbs.twimg.com" default:"abs.twimg.com" default:"video.twimg.com" default:"unavatar.io" description:"Host the image proxy may fetch from (repeatable)"`
	NoImageProxy   bool          `long:"no-image-proxy" env:"POSTCARD_NO_IMAGE_PROXY" description:"Return upstream image URLs instead of proxied ones"`
}

// SourceSettings tunes one adapter.
type SourceSettings struct {
	Enabled *bool         `yaml:"enabled"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// File is the YAML configuration file. Sources are listed in priority order.
type File struct {
	Sources []SourceSettings `yaml:"sources"`
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := map[string]bool{}
	for _, s := range f.Sources {
		if !slices.Contains(source.Names(), s.Name) {
			return fmt.Errorf("unknown source %q", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q listed twice", s.Name)
		}
		seen[s.Name] = true
		if s.Timeout < 0 {
			return fmt.Errorf("source %q: negative timeout", s.Name)
		}
	}
	return nil
}

// MaxTimeout returns the longest per-source timeout in f, or def if none is
// longer. HTTP clients shared by the sources should allow at least this much.
func (f *File) MaxTimeout(def time.Duration) time.Duration {
	if f == nil {
		return def
	}
	longest := def
	for _, s := range f.Sources {
		longest = max(longest, s.Timeout)
	}
	return longest
}

// BuildSources returns the adapter chain described by f. A nil file or an
// empty source list yields the default chain. A source with a timeout uses it
// in place of the global --source-timeout, longer or shorter.
func (f *File) BuildSources(client *http.Client, opts ...source.Option) ([]source.Source, error) {
	if f == nil || len(f.Sources) == 0 {
		return source.Default(client, opts...), nil
	}

	var out []source.Source
	for _, s := range f.Sources {
		if s.Enabled != nil && !*s.Enabled {
			continue
		}
		src, ok := source.ByName(client, s.Name, opts...)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", s.Name)
		}
		out = append(out, source.Timed(src, s.Timeout))
	}
	if len(out) == 0 {
		return nil, errors.New("every source is disabled")
	}
	return out, nil
}
