package scenario

import (
	"context"
	"fmt"
	"net/http"
	"slices"
)

// RequestTemplate describes one HTTP call of a profile. Path, header and body
// values are text templates rendered against the user's session.
type RequestTemplate struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    map[string]string `yaml:"body,omitempty"`

	// Auth adds "Authorization: Bearer <token>". The request is skipped while
	// the session has no token.
	Auth bool `yaml:"auth,omitempty"`

	// Expect is the status allow-list. Empty means any status below 400.
	Expect []int `yaml:"expect,omitempty"`

	// Capture copies top level JSON fields of a 200 response into the session,
	// keyed by session variable name. "token" sets Session.Token.
	Capture map[string]string `yaml:"capture,omitempty"`
}

// Label is the name the request is reported under.
func (t *RequestTemplate) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Path
}

// Request is a rendered template ready to be sent.
type Request struct {
	Name   string
	Method string
	Path   string
	Header http.Header
	Body   []byte
	Expect []int
}

// Response is what the requester reports back after classification.
type Response struct {
	Status  int
	Body    []byte
	Success bool
}

// Requester sends requests for a virtual user and records their outcome.
type Requester interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req *Request) (*Response, error)

func (f RequesterFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Classify decides whether a request succeeded. A transport error is always a
// failure. With an allow-list the status must be listed; without one any
// status below 400 passes. The returned reason is empty on success.
func Classify(expect []int, status int, err error) (bool, string) {
	if err != nil {
		return false, err.Error()
	}
	if len(expect) == 0 {
		if status > 0 && status < http.StatusBadRequest {
			return true, ""
		}
		return false, fmt.Sprintf("unexpected status %d", status)
	}
	if slices.Contains(expect, status) {
		return true, ""
	}
	return false, fmt.Sprintf("unexpected status %d", status)
}
