package middleware

import (
	"context"
	"net/http"
)

// Hook returns middleware that calls fn before serving each request.
// fn receives a context detached from request cancellation so work it starts
// is not cut short when the client disconnects.
func Hook(fn func(ctx context.Context)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fn(context.WithoutCancel(r.Context()))
			next.ServeHTTP(w, r)
		})
	}
}
