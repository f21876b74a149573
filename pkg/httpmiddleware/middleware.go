// Package httpmiddleware holds the net/http middleware chain shared by the
// gateway: recovery, request ids, CORS, request-scoped logging,
// OpenTelemetry instrumentation and per-client throttling.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost one,
// so it sees the request first.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
