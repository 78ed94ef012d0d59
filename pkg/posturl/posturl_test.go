package posturl

import (
	"errors"
	"testing"

	"github.com/codeGROOVE-dev/postcard/pkg/post"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    post.Ref
		wantMsg string
	}{
		{input: "https://x.com/jack/status/20", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "https://twitter.com/jack/status/20", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "http://x.com/jack/status/20", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "  HTTPS://X.COM/Some_User/STATUS/1234567890123456789  ", want: post.Ref{Username: "Some_User", PostID: "1234567890123456789"}},
		{input: "https://x.com/jack/status/20/photo/1", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "https://x.com/jack/status/20?s=46&t=abc", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "https://x.com/jack/status/20#frag", want: post.Ref{Username: "jack", PostID: "20"}},
		{input: "", wantMsg: post.MsgEmptyInput},
		{input: "   ", wantMsg: post.MsgEmptyInput},
		{input: "not a url", wantMsg: post.MsgInvalidURL},
		{input: "https://x.com/jack", wantMsg: post.MsgInvalidURL},
		{input: "https://x.com/jack/status/abc", wantMsg: post.MsgInvalidURL},
		{input: "https://x.com/jack/status/20abc", wantMsg: post.MsgInvalidURL},
		{input: "https://x.com/ja-ck/status/20", wantMsg: post.MsgInvalidURL},
		{input: "https://example.com/jack/status/20", wantMsg: post.MsgInvalidURL},
		{input: "https://x.com.evil.com/jack/status/20", wantMsg: post.MsgInvalidURL},
		{input: "ftp://x.com/jack/status/20", wantMsg: post.MsgInvalidURL},
		{input: "x.com/jack/status/20", wantMsg: post.MsgInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantMsg != "" {
				var pe *post.Error
				if !errors.As(err, &pe) {
					t.Fatalf("Parse(%q) error = %v, want *post.Error", tt.input, err)
				}
				if !errors.Is(err, post.ErrInvalidInput) {
					t.Errorf("Parse(%q) error should wrap ErrInvalidInput", tt.input)
				}
				if pe.Status != 400 || pe.Message != tt.wantMsg {
					t.Errorf("Parse(%q) = (%d, %q), want (400, %q)", tt.input, pe.Status, pe.Message, tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	got := Canonical(post.Ref{Username: "jack", PostID: "20"})
	if want := "https://twitter.com/jack/status/20"; got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

