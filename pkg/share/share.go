// Package share encodes card display settings in share links.
package share

import (
	"math"
	"net/url"
	"strconv"
)

// DefaultSource in the url parameter selects the placeholder post.
const DefaultSource = "__default__"

// Card geometry limits.
const (
	MinWidth      = 350
	MaxWidth      = 700
	DefaultWidth  = 550
	MaxRadius     = 60
	DefaultRadius = 20
)

// Themes and shadow intensities a card can use.
var (
	Themes  = []string{"light", "dim", "dark"}
	Shadows = []string{"flat", "raised", "floating", "elevated"}
)

// Settings control how a shared card renders.
type Settings struct {
	Theme     string `json:"theme"`
	Shadow    string `json:"shadow"`
	CardWidth int    `json:"cardWidth"`
	Radius    int    `json:"radius"`
	ShowDate  bool   `json:"showDate"`
}

// Defaults returns the settings used when a link carries none.
func Defaults() Settings {
	return Settings{
		Theme:     "light",
		Shadow:    "floating",
		CardWidth: DefaultWidth,
		Radius:    DefaultRadius,
		ShowDate:  true,
	}
}

// Parse reads the post source and settings from share link parameters.
// Unknown or malformed values fall back to their defaults; numbers are clamped.
func Parse(q url.Values) (source string, s Settings) {
	s = Defaults()
	source = q.Get("url")

	if oneOf(q.Get("theme"), Themes) {
		s.Theme = q.Get("theme")
	}
	if oneOf(q.Get("shadow"), Shadows) {
		s.Shadow = q.Get("shadow")
	}
	s.ShowDate = q.Get("showDate") != "0"

	if w, ok := number(q, "cardWidth"); ok {
		w = math.Min(math.Max(w, MinWidth), MaxWidth)
		s.CardWidth = int(roundHalfUp(w/2)) * 2
	}
	if r, ok := number(q, "radius"); ok {
		s.Radius = int(roundHalfUp(math.Min(math.Max(r, 0), MaxRadius)))
	}
	return source, s
}

// Build returns a share link at base carrying source and s. Parse inverts it.
func Build(base, source string, s Settings) string {
	if source == "" {
		source = DefaultSource
	}
	q := url.Values{}
	q.Set("url", source)
	q.Set("theme", s.Theme)
	q.Set("shadow", s.Shadow)
	q.Set("cardWidth", strconv.Itoa(s.CardWidth))
	q.Set("radius", strconv.Itoa(s.Radius))
	if !s.ShowDate {
		q.Set("showDate", "0")
	}
	return base + "?" + q.Encode()
}

// number reads a numeric parameter. A present but empty value reads as 0, the
// way browsers coerce it.
func number(q url.Values, key string) (float64, bool) {
	if !q.Has(key) {
		return 0, false
	}
	raw := q.Get(key)
	if raw == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
