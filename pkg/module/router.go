package module

import (
	"fmt"
	"net/http"
	"strings"
)

// Router dispatches on the first path segment to a mounted Module. Requests
// that match no module go to a native ServeMux for probes such as /healthz.
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

// NewRouter creates a Router with no modules mounted.
func NewRouter() *Router {
	return &Router{
		modules: map[string]*Module{},
		native:  http.NewServeMux(),
	}
}

// Handle registers handler on the native mux.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.native.Handle(pattern, handler)
}

// HandleFunc registers fn on the native mux.
func (r *Router) HandleFunc(pattern string, fn http.HandlerFunc) {
	r.native.HandleFunc(pattern, fn)
}

// Mount registers modules by prefix. Panics if a prefix is already mounted.
func (r *Router) Mount(modules ...*Module) {
	for _, m := range modules {
		if _, dup := r.modules[m.prefix]; dup {
			panic(fmt.Errorf("module prefix already mounted: %s", m.prefix))
		}
		r.modules[m.prefix] = m
	}
}

// ServeHTTP trims one trailing slash from the path, then dispatches.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = p[:len(p)-1]
	}

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	rest := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return "/" + rest
}
