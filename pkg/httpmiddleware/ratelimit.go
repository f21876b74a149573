package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ThrottleConfig configures the per-client token bucket throttle.
type ThrottleConfig struct {
	// RPS is the sustained request rate per client.
	RPS float64
	// Burst is the bucket size per client.
	Burst int
	// IdleTTL evicts clients not seen for this long. Defaults to 10m.
	IdleTTL time.Duration
	// TrustProxy keys clients on X-Forwarded-For and X-Real-IP. Enable it
	// only behind a proxy that overwrites those headers.
	TrustProxy bool
	// KeyFunc identifies the client. Defaults to ClientIP, or ForwardedClientIP
	// when TrustProxy is set.
	KeyFunc func(*http.Request) string
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttle struct {
	cfg     ThrottleConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func newThrottle(cfg ThrottleConfig) *throttle {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
		if cfg.TrustProxy {
			cfg.KeyFunc = ForwardedClientIP
		}
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &throttle{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
	}
}

func (t *throttle) allow(key string, now time.Time) bool {
	t.mu.Lock()
	c, ok := t.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.clients[key] = c
	}
	c.lastSeen = now
	t.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (t *throttle) evict(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, c := range t.clients {
		if now.Sub(c.lastSeen) >= t.cfg.IdleTTL {
			delete(t.clients, key)
		}
	}
}

func (t *throttle) runEviction(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.IdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.evict(now)
		}
	}
}

func (t *throttle) retryAfter() string {
	if t.cfg.RPS <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/t.cfg.RPS))))
}

// Throttle limits each client to cfg.RPS requests per second with bursts of
// cfg.Burst, answering 429 with Retry-After once the bucket is empty. Idle
// clients are evicted in the background until ctx is done.
func Throttle(ctx context.Context, cfg ThrottleConfig) Middleware {
	t := newThrottle(cfg)
	go t.runEviction(ctx)
	return t.middleware
}

func (t *throttle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := t.cfg.KeyFunc(r)
		if !t.allow(key, time.Now()) {
			zctx.From(r.Context()).Warn("Client throttled",
				zap.String("client", key),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", t.retryAfter())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are
// ignored because any caller can set them.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedClientIP returns the first X-Forwarded-For hop, then X-Real-IP,
// then ClientIP.
func ForwardedClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return ClientIP(r)
}
