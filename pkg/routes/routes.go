// Package routes declares method-scoped handlers grouped under path prefixes
// and registers them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and a prefix-relative pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group nests routes and child groups under Prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk visits every route in the group tree with its full mux pattern,
// for example "GET /runs/{id}". Parent routes are visited before children.
func (g Group) Walk(fn func(pattern string, handler http.HandlerFunc)) {
	g.walk("", fn)
}

func (g Group) walk(parent string, fn func(string, http.HandlerFunc)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(r.Method+" "+prefix+r.Pattern, r.Handler)
	}
	for _, child := range g.Children {
		child.walk(prefix, fn)
	}
}

// Register adds all routes from groups to mux and returns the registered patterns
// in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, g := range groups {
		g.Walk(func(pattern string, handler http.HandlerFunc) {
			mux.HandleFunc(pattern, handler)
			patterns = append(patterns, pattern)
		})
	}
	return patterns
}
