// Package post defines the normalized post record and the error taxonomy shared
// by the extraction pipeline.
package post

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common errors returned by the pipeline.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyResult  = errors.New("source returned no usable content")
	ErrExhausted    = errors.New("no source produced usable content")
)

// User-facing messages. Internal details never reach these.
const (
	MsgEmptyInput   = "Please enter a URL"
	MsgInvalidURL   = "Enter a valid X post URL (x.com/user/status/...)"
	MsgExhausted    = "Could not load post. Try: demo, startup, code, ai, or product"
	MsgFetchFailure = "Failed to fetch post"
)

// TimeLayout renders timestamps the way the web client expects (ISO-8601, UTC, milliseconds).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Author identifies who wrote a post.
type Author struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"` // Always prefixed with "@"
	Avatar   string `json:"avatar"`
	Verified bool   `json:"verified"`
}

// Content is the cleaned body of a post.
type Content struct {
	Text   string   `json:"text"`
	Images []string `json:"images"` // Never nil; no duplicates
}

// Post is the single output type of an extraction.
type Post struct {
	Author    Author  `json:"author"`
	Content   Content `json:"content"`
	Timestamp string  `json:"timestamp"`
}

// Ref is a decomposed post URL.
type Ref struct {
	Username string
	PostID   string
}

// FormatTime renders t using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Handle returns name prefixed with the mention sigil, without doubling it.
func Handle(name string) string {
	return "@" + strings.TrimPrefix(name, "@")
}

// Attempt records the outcome of one source in a cascade.
type Attempt struct {
	Source string
	Err    error
}

// Error is a terminal, user-facing extraction failure.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Error struct {
	Status   int       // HTTP-style status code
	Message  string    // Short, actionable message safe to show to end users
	Err      error     // Sentinel (ErrInvalidInput, ErrExhausted)
	Attempts []Attempt // Per-source diagnostics; for logs only
}

func (e *Error) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
	}
	return fmt.Sprintf("%s (%s)", e.Err, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput returns a 400 error carrying msg.
func InvalidInput(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg, Err: ErrInvalidInput}
}

// Exhausted returns a 503 error recording every failed attempt.
func Exhausted(attempts []Attempt) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: MsgExhausted, Err: ErrExhausted, Attempts: attempts}
}

// StatusOf maps err to an HTTP status code and a message safe for end users.
func StatusOf(err error) (status int, msg string) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status, pe.Message
	}
	return http.StatusInternalServerError, MsgFetchFailure
}
