package app

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/keygate/internal/admin"
	"github.com/xenking/keygate/internal/authgate"
	"github.com/xenking/keygate/internal/backend"
	"github.com/xenking/keygate/internal/handler"
	"github.com/xenking/keygate/internal/ratelimit"
	"github.com/xenking/keygate/internal/storage/keyfile"
	"github.com/xenking/keygate/pkg/health"
	"github.com/xenking/keygate/pkg/httpmiddleware"
)

const serviceName = "keygate"

// Run creates all dependencies, starts the HTTP server and the background
// workers, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend.URL),
		zap.String("store", cfg.Store.Path),
	)

	// Key store: loaded once, a broken file is fatal.
	store, err := keyfile.Open(ctx, cfg.Store.Path, keyfile.WithWaitTimeout(cfg.Store.Timeout))
	if err != nil {
		return errors.Wrap(err, "open key store")
	}
	lg.Info("Key store loaded", zap.Int("keys", store.Len()))

	gate, err := authgate.New(store, ratelimit.NewLimiter(store), m.MeterProvider().Meter(serviceName))
	if err != nil {
		return errors.Wrap(err, "create auth gate")
	}
	ctrl, err := admin.NewController(store, cfg.AdminKey, admin.Defaults{
		Quota: cfg.DefaultQuota(),
		TTL:   cfg.KeyTTL,
	})
	if err != nil {
		return errors.Wrap(err, "create admin controller")
	}
	client, err := backend.New(backend.Config{
		URL:     cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Breaker: backend.BreakerConfig{
			Enabled:     cfg.Backend.Breaker.Enabled,
			Failures:    cfg.Backend.Breaker.Failures,
			OpenTimeout: cfg.Backend.Breaker.OpenTimeout,
		},
	}, backend.Options{
		Logger:         lg.Named("backend"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	// Health checks. The backend only gates readiness: without it the
	// gateway still serves admin routes.
	healthSvc := health.New()
	healthSvc.Add(health.Liveness, health.Check{
		Name:    "goroutines",
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})
	healthSvc.Add(health.Readiness, health.Check{
		Name:    "store",
		Timeout: time.Second,
		Func:    health.DirWritableCheck(filepath.Dir(store.Path())),
	})
	healthSvc.Add(health.Readiness, health.Check{
		Name:    "backend",
		Timeout: 5 * time.Second,
		Func:    client.Ping,
	})

	h := handler.New(handler.Config{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	}, gate, ctrl, client)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	throttle := httpmiddleware.Throttle(ctx, httpmiddleware.ThrottleConfig{
		RPS:        cfg.AdminRateLimit.RPS,
		Burst:      cfg.AdminRateLimit.Burst,
		TrustProxy: cfg.AdminRateLimit.TrustProxy,
	})
	if err := h.Mount(mux, throttle); err != nil {
		return errors.Wrap(err, "mount routes")
	}

	// No WriteTimeout: generations stream for as long as the backend timeout
	// allows.
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins: cfg.CORS.Origins,
				Headers: []string{"Content-Type", handler.HeaderAPIKey, handler.HeaderAdminKey},
				Expose:  []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", httpmiddleware.HeaderRequestID},
				MaxAge:  86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gCtx, 10*time.Second)
	})
	if cfg.Store.SweepInterval > 0 {
		g.Go(func() error {
			return sweepExpired(gCtx, lg, ctrl, cfg.Store.SweepInterval)
		})
	}
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// sweepExpired periodically removes expired keys. Expired keys are already
// rejected at admission, so a failed sweep is logged and retried.
func sweepExpired(ctx context.Context, lg *zap.Logger, ctrl *admin.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := ctrl.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				lg.Error("Sweep expired keys", zap.Error(err))
				continue
			}
			if removed > 0 {
				lg.Info("Expired keys removed", zap.Int("removed", removed))
			}
		}
	}
}
