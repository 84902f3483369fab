// Package middleware provides the HTTP middleware used by the API module:
// CORS, request logging, bearer authentication, and per-request hooks.
package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Stack is an ordered middleware list. The first entry is the outermost wrapper.
// The zero value is an empty stack.
type Stack []Middleware

// Use appends middleware to the end of the stack.
func (s *Stack) Use(mw ...Middleware) {
	*s = append(*s, mw...)
}

// Apply wraps handler so a request passes through the stack in order.
func (s Stack) Apply(handler http.Handler) http.Handler {
	for i := len(s) - 1; i >= 0; i-- {
		handler = s[i](handler)
	}
	return handler
}
