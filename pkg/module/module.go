// Package module mounts self-contained HTTP handlers under single-segment path
// prefixes. Each Module owns its middleware and sees request paths with its
// prefix removed.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/rainn/pkg/middleware"
)

// Module serves an inner handler under a path prefix such as "/api".
type Module struct {
	prefix  string
	handler http.Handler
	stack   middleware.Stack
}

// New creates a Module for prefix. Panics unless prefix is a single segment
// with a leading slash.
func New(prefix string, handler http.Handler) *Module {
	if err := validatePrefix(prefix); err != nil {
		panic(err)
	}
	return &Module{prefix: prefix, handler: handler}
}

// Prefix returns the module's mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware to the module's stack.
func (m *Module) Use(mw ...middleware.Middleware) {
	m.stack.Use(mw...)
}

// Handler returns the inner handler wrapped in the module's middleware.
func (m *Module) Handler() http.Handler {
	return m.stack.Apply(m.handler)
}

// Serve removes the module prefix from the request path and dispatches it.
// A request for the bare prefix is served as "/".
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, m.strip(req))
}

func (m *Module) strip(req *http.Request) *http.Request {
	rest := strings.TrimPrefix(req.URL.Path, m.prefix)
	if rest == "" {
		rest = "/"
	}

	u := *req.URL
	u.Path = rest
	u.RawPath = ""

	out := req.WithContext(req.Context())
	out.URL = &u
	return out
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case prefix[0] != '/':
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Contains(prefix[1:], "/"):
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	case prefix != "/"+url.PathEscape(prefix[1:]):
		return fmt.Errorf("module prefix must not need escaping: %s", prefix)
	}
	return nil
}
