// Package handler exposes the gateway over HTTP: the forwarded inference
// routes behind API-key admission and the key management routes behind the
// admin credential.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/keygate/internal/admin"
	"github.com/xenking/keygate/internal/authgate"
	"github.com/xenking/keygate/internal/backend"
)

const (
	// HeaderAPIKey carries the caller's API key.
	HeaderAPIKey = "X-API-Key"
	// HeaderAdminKey carries the admin credential.
	HeaderAdminKey = "X-Admin-Key"

	defaultMaxBodyBytes = 10 << 20
)

// Backend forwards admitted requests.
type Backend interface {
	Do(ctx context.Context, req backend.Request) (*http.Response, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxBodyBytes bounds request bodies read by the gateway.
	MaxBodyBytes int64
	// TracerProvider and MeterProvider instrument the admin server. Nil
	// selects the global providers.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Handler serves the gateway routes.
type Handler struct {
	gate    *authgate.Gate
	admin   *admin.Controller
	backend Backend
	maxBody int64

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// New constructs a Handler.
func New(cfg Config, gate *authgate.Gate, ctrl *admin.Controller, b Backend) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		gate:    gate,
		admin:   ctrl,
		backend: b,
		maxBody: cfg.MaxBodyBytes,

		tracerProvider: cfg.TracerProvider,
		meterProvider:  cfg.MeterProvider,
	}
}

// Mount registers all routes on mux. The admin subtree is served by the
// generated admin server. It is wrapped with throttle (if any) before the
// credential check, so that guessing the admin key is throttled too.
func (h *Handler) Mount(mux *http.ServeMux, throttle func(http.Handler) http.Handler) error {
	mux.HandleFunc("GET /api/health", h.Health)

	mux.Handle("POST /api/generate", h.RequireAPIKey(http.HandlerFunc(h.Generate)))
	mux.Handle("POST /api/embeddings", h.RequireAPIKey(http.HandlerFunc(h.Embeddings)))
	mux.Handle("GET /api/tags", h.RequireAPIKey(http.HandlerFunc(h.ListModels)))
	mux.Handle("DELETE /api/tags/{model}", h.RequireAPIKey(http.HandlerFunc(h.DeleteModel)))

	adminServer, err := h.newAdminServer()
	if err != nil {
		return errors.Wrap(err, "mount admin routes")
	}
	var adminRoutes http.Handler = h.RequireAdmin(h.limitBody(adminServer))
	if throttle != nil {
		adminRoutes = throttle(adminRoutes)
	}
	mux.Handle("/admin/", adminRoutes)
	return nil
}

// Health always reports ok; deeper probes live on /livez and /readyz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
	})
}
