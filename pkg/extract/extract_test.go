package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeGROOVE-dev/postcard/pkg/httpcache"
	"github.com/codeGROOVE-dev/postcard/pkg/metrics"
	"github.com/codeGROOVE-dev/postcard/pkg/post"
	"github.com/codeGROOVE-dev/postcard/pkg/source"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSource struct {
	raw   *source.Raw
	err   error
	name  string
	calls atomic.Int32
	block bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, _ post.Ref) (*source.Raw, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.raw, f.err
}

const postURL = "https://x.com/jane/status/1234567890"

func TestExtractDemo(t *testing.T) {
	src := &fakeSource{name: "never"}
	e := New(WithSources(src), WithClock(clock))

	got, err := e.Extract(context.Background(), "  DEMO ")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Author.Name != "Design Systems" || got.Author.Handle != "@designsystems" {
		t.Errorf("Author = %+v", got.Author)
	}
	if got.Timestamp != "2025-03-04T05:06:07.008Z" {
		t.Errorf("Timestamp = %q", got.Timestamp)
	}
	if src.calls.Load() != 0 {
		t.Error("demo keyword should not call any source")
	}
}

func TestExtractInvalidInput(t *testing.T) {
	tests := []struct {
		input   string
		wantMsg string
	}{
		{"", post.MsgEmptyInput},
		{"   ", post.MsgEmptyInput},
		{"not a url", post.MsgInvalidURL},
		{"https://x.com/jane", post.MsgInvalidURL},
		{"https://example.com/jane/status/1", post.MsgInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			src := &fakeSource{name: "never"}
			e := New(WithSources(src))

			_, err := e.Extract(context.Background(), tt.input)
			if !errors.Is(err, post.ErrInvalidInput) {
				t.Fatalf("Extract() error = %v, want ErrInvalidInput", err)
			}
			status, msg := post.StatusOf(err)
			if status != http.StatusBadRequest || msg != tt.wantMsg {
				t.Errorf("StatusOf() = %d %q, want 400 %q", status, msg, tt.wantMsg)
			}
			if src.calls.Load() != 0 {
				t.Error("invalid input should not call any source")
			}
		})
	}
}

func TestExtractFirstSourceWins(t *testing.T) {
	first := &fakeSource{name: "syndication", raw: &source.Raw{
		CreatedAt:  time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC),
		Name:       "Jane Doe",
		ScreenName: "jane",
		Avatar:     "https://pbs.twimg.com/profile_images/1/j_normal.jpg?session=abc",
		Text:       "Launch day https://t.co/media1 is here https://t.co/media1 pic.twitter.com/xyz",
		Images: []string{
			"https://pbs.twimg.com/media/A.jpg?name=small",
			"https://pbs.twimg.com/media/A.jpg",
		},
		MediaShortLinks: []string{"https://t.co/media1"},
		Verified:        true,
	}}
	second := &fakeSource{name: "embed"}

	e := New(WithSources(first, second), WithClock(clock))
	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := &post.Post{
		Author: post.Author{
			Name:     "Jane Doe",
			Handle:   "@jane",
			Avatar:   "https://pbs.twimg.com/profile_images/1/j_400x400.jpg",
			Verified: true,
		},
		Content: post.Content{
			Text:   "Launch day is here",
			Images: []string{"https://pbs.twimg.com/media/A.jpg?format=jpg&name=large"},
		},
		Timestamp: "2024-05-01T12:34:56.000Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	if second.calls.Load() != 0 {
		t.Error("later sources should not run after a success")
	}
}

func TestExtractFallsThroughToOEmbed(t *testing.T) {
	syndication := &fakeSource{name: "syndication", err: &httpcache.HTTPError{StatusCode: 404, URL: "u"}}
	embed := &fakeSource{name: "embed", raw: &source.Raw{Text: "   https://t.co/abc  "}}
	oembed := &fakeSource{name: "oembed", raw: &source.Raw{Name: "Jane Doe", Text: "just setting up"}}

	reg := prometheus.NewRegistry()
	e := New(WithSources(syndication, embed, oembed), WithClock(clock), WithMetrics(metrics.New(reg)))

	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := &post.Post{
		Author: post.Author{
			Name:   "Jane Doe",
			Handle: "@jane",
			Avatar: "https://unavatar.io/twitter/jane",
		},
		Content:   post.Content{Text: "just setting up", Images: []string{}},
		Timestamp: "2025-03-04T05:06:07.008Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
	for _, s := range []*fakeSource{syndication, embed, oembed} {
		if n := s.calls.Load(); n != 1 {
			t.Errorf("%s called %d times, want 1", s.name, n)
		}
	}
}

func TestExtractImagesOnly(t *testing.T) {
	src := &fakeSource{name: "embed", raw: &source.Raw{
		Text:   "pic.twitter.com/abc",
		Poster: "https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/x.jpg",
	}}
	e := New(WithSources(src), WithClock(clock))

	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Content.Text != "" {
		t.Errorf("Text = %q, want empty", got.Content.Text)
	}
	want := []string{"https://pbs.twimg.com/ext_tw_video_thumb/1/pu/img/x.jpg?format=jpg&name=large"}
	if diff := cmp.Diff(want, got.Content.Images); diff != "" {
		t.Errorf("Images mismatch (-want +got):\n%s", diff)
	}
	if got.Author.Name != "jane" {
		t.Errorf("Name = %q, want username fallback", got.Author.Name)
	}
}

func TestExtractExhausted(t *testing.T) {
	sources := []source.Source{
		&fakeSource{name: "syndication", err: post.ErrEmptyResult},
		&fakeSource{name: "embed", err: errors.New("connection reset")},
		&fakeSource{name: "oembed", raw: &source.Raw{}},
	}
	e := New(WithSources(sources...))

	_, err := e.Extract(context.Background(), postURL)
	if !errors.Is(err, post.ErrExhausted) {
		t.Fatalf("Extract() error = %v, want ErrExhausted", err)
	}
	var pe *post.Error
	if !errors.As(err, &pe) {
		t.Fatalf("error is %T, want *post.Error", err)
	}
	if pe.Status != http.StatusServiceUnavailable || pe.Message != post.MsgExhausted {
		t.Errorf("Error = %d %q", pe.Status, pe.Message)
	}
	var names []string
	for _, a := range pe.Attempts {
		names = append(names, a.Source)
	}
	if diff := cmp.Diff([]string{"syndication", "embed", "oembed"}, names); diff != "" {
		t.Errorf("Attempts mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(pe.Attempts[2].Err, post.ErrEmptyResult) {
		t.Errorf("empty record should count as ErrEmptyResult, got %v", pe.Attempts[2].Err)
	}
}

func TestExtractPerSourceTimeout(t *testing.T) {
	slow := &fakeSource{name: "syndication", block: true}
	fast := &fakeSource{name: "embed", raw: &source.Raw{Text: "made it"}}
	e := New(WithSources(slow, fast), WithTimeout(20*time.Millisecond))

	start := time.Now()
	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Content.Text != "made it" {
		t.Errorf("Text = %q", got.Content.Text)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Extract() took %v", elapsed)
	}
}

// slowSource answers after delay unless its context ends first.
type slowSource struct {
	delay time.Duration
	raw   *source.Raw
}

func (*slowSource) Name() string { return "syndication" }

func (s *slowSource) Fetch(ctx context.Context, _ post.Ref) (*source.Raw, error) {
	select {
	case <-time.After(s.delay):
		return s.raw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestExtractTimedSourceOverridesDefault(t *testing.T) {
	slow := &slowSource{delay: 100 * time.Millisecond, raw: &source.Raw{Text: "worth the wait"}}

	e := New(WithSources(slow), WithTimeout(10*time.Millisecond))
	if _, err := e.Extract(context.Background(), postURL); !errors.Is(err, post.ErrExhausted) {
		t.Fatalf("Extract() with short default error = %v, want ErrExhausted", err)
	}

	e = New(WithSources(source.Timed(slow, 5*time.Second)), WithTimeout(10*time.Millisecond))
	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() with longer source timeout error = %v", err)
	}
	if got.Content.Text != "worth the wait" {
		t.Errorf("Text = %q", got.Content.Text)
	}
}

func TestExtractCanceled(t *testing.T) {
	src := &fakeSource{name: "syndication", raw: &source.Raw{Text: "x"}}
	e := New(WithSources(src))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, postURL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
	if src.calls.Load() != 0 {
		t.Error("canceled context should stop before any source")
	}
}

func TestExtractCanceledMidCascade(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeSource{name: "syndication", block: true}
	second := &fakeSource{name: "embed", raw: &source.Raw{Text: "x"}}
	e := New(WithSources(first, second), WithTimeout(time.Minute))

	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := e.Extract(ctx, postURL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
	if second.calls.Load() != 0 {
		t.Error("cascade should stop once the caller cancels")
	}
}

func TestExtractWithoutAvatarFallback(t *testing.T) {
	src := &fakeSource{name: "oembed", raw: &source.Raw{Text: "hello"}}
	e := New(WithSources(src), WithAvatarFallback(false))

	got, err := e.Extract(context.Background(), postURL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Author.Avatar != "" {
		t.Errorf("Avatar = %q, want empty", got.Author.Avatar)
	}
}

func TestExtractAgainstUpstreams(t *testing.T) {
	httpcache.SetRateLimit(0, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tweet-result":
			fmt.Fprint(w, "{}")
		case "/tweet":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/oembed":
			fmt.Fprint(w, `{"author_name":"Jack","html":"<blockquote><p>just setting up my twttr https://t.co/abc</p>&mdash; jack <a href=\"#\">March 21, 2006</a></blockquote>"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := New(
		WithSources(source.Default(srv.Client(), source.WithBaseURL(srv.URL))...),
		WithClock(clock),
	)
	got, err := e.Extract(context.Background(), "https://twitter.com/jack/status/20")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := &post.Post{
		Author: post.Author{
			Name:   "Jack",
			Handle: "@jack",
			Avatar: "https://unavatar.io/twitter/jack",
		},
		Content:   post.Content{Text: "just setting up my twttr", Images: []string{}},
		Timestamp: "2006-03-21T00:00:00.000Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}
