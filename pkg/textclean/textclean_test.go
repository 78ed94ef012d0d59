package textclean

import (
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{
			name: "stacked trailing stubs",
			in:   "hello pic.twitter.com/abc t.co/xyz",
			want: "hello",
		},
		{
			name: "trailing https short link",
			in:   "look at this https://t.co/AbCdEf1234",
			want: "look at this",
		},
		{
			name: "trailing stubs on own lines",
			in:   "caption\n\nhttps://t.co/aaa\npic.twitter.com/bbb  \n",
			want: "caption",
		},
		{
			name: "mid text short link kept",
			in:   "read https://t.co/abc123 then reply",
			want: "read https://t.co/abc123 then reply",
		},
		{
			name: "mid text media stub kept without images",
			in:   "see pic.twitter.com/abc here",
			want: "see pic.twitter.com/abc here",
		},
		{
			name: "media stub removed anywhere with images",
			in:   "see pic.twitter.com/abc here",
			opts: Options{HasImages: true},
			want: "see here",
		},
		{
			name: "media stub removal is case insensitive",
			in:   "see HTTPS://PIC.TWITTER.COM/ABC here",
			opts: Options{HasImages: true},
			want: "see here",
		},
		{
			name: "known media short links removed with images",
			in:   "photo https://t.co/media1 from today",
			opts: Options{HasImages: true, MediaShortLinks: []string{"https://t.co/media1"}},
			want: "photo from today",
		},
		{
			name: "known media short links kept without images",
			in:   "photo https://t.co/media1 from today",
			opts: Options{MediaShortLinks: []string{"https://t.co/media1"}},
			want: "photo https://t.co/media1 from today",
		},
		{
			name: "stub glued to a word is not stripped",
			in:   "foo.t.co/abc",
			want: "foo.t.co/abc",
		},
		{
			name: "whitespace normalization",
			in:   "  line one  \t \n\n\n\nline\t\ttwo   end  ",
			want: "line one\n\nline two end",
		},
		{
			name: "only a stub",
			in:   "https://t.co/abc",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "more than ten stacked stubs",
			in:   "x t.co/1 t.co/2 t.co/3 t.co/4 t.co/5 t.co/6 t.co/7 t.co/8 t.co/9 t.co/10 t.co/11 t.co/12",
			want: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in, tt.opts)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"hello pic.twitter.com/abc t.co/xyz",
		"ppic.twitter.com/xic.twitter.com/a trailing",
		"a \n\n \n b  \t c",
		"   ",
		"x\n \n \n\nhttps://t.co/a pic.twitter.com/b",
		"text https://t.co/aht.co/b",
		"emoji 🎉  party\t\t\n\n\n\nnext",
	}
	optsList := []Options{
		{},
		{HasImages: true},
		{HasImages: true, MediaShortLinks: []string{"t.co/a", "https://t.co/a"}},
	}

	for _, in := range inputs {
		for _, opts := range optsList {
			once := Clean(in, opts)
			twice := Clean(once, opts)
			if once != twice {
				t.Errorf("Clean not idempotent for %q (%+v): once=%q twice=%q", in, opts, once, twice)
			}
		}
	}
}

func TestStripTrailingStubs(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a https://t.co/x http://pic.twitter.com/y", "a"},
		{"a t.co/x b", "a t.co/x b"},
		{"pic.twitter.com/only", ""},
		{"trailing spaces   ", "trailing spaces"},
	}
	for _, tt := range tests {
		if got := StripTrailingStubs(tt.in); got != tt.want {
			t.Errorf("StripTrailingStubs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBestText(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"longest wins", []string{"short", "a much longer note text", "full"}, "a much longer note text"},
		{"earlier wins ties", []string{"same", "four"}, "same"},
		{"blank skipped", []string{"   ", "", "text"}, "text"},
		{"none", []string{"", " "}, ""},
		{"runes not bytes", []string{"ééé", "abcd"}, "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BestText(tt.candidates...); got != tt.want {
				t.Errorf("BestText(%q) = %q, want %q", tt.candidates, got, tt.want)
			}
		})
	}
}
