package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/api-keys", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// slowThrottle refills so slowly that only the burst matters within a test.
func slowThrottle(burst int) *throttle {
	return newThrottle(ThrottleConfig{RPS: 0.001, Burst: burst})
}

func TestThrottle_BurstThenReject(t *testing.T) {
	h := slowThrottle(3).middleware(okHandler())

	for i := range 3 {
		w := serve(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := serve(h, "192.168.1.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1000", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestThrottle_ClientsAreIndependent(t *testing.T) {
	h := slowThrottle(1).middleware(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.2:1234", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "10.0.0.1:5678", nil).Code,
		"port does not make a new client")
}

func TestThrottle_SpoofedForwardedForIgnored(t *testing.T) {
	h := slowThrottle(1).middleware(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "192.168.1.1:4444",
		map[string]string{"X-Forwarded-For": "203.0.113.1"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "192.168.1.1:4444",
		map[string]string{"X-Forwarded-For": "203.0.113.2"}).Code,
		"a fresh X-Forwarded-For must not buy a fresh bucket")
}

func TestThrottle_TrustProxyUsesForwardedFor(t *testing.T) {
	h := newThrottle(ThrottleConfig{RPS: 0.001, Burst: 1, TrustProxy: true}).middleware(okHandler())
	xff := map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}

	assert.Equal(t, http.StatusOK, serve(h, "192.168.1.1:4444", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "192.168.1.2:5555", xff).Code)
	assert.Equal(t, http.StatusOK, serve(h, "192.168.1.1:4444",
		map[string]string{"X-Forwarded-For": "203.0.113.51"}).Code)
}

func TestThrottle_CustomKeyFunc(t *testing.T) {
	th := newThrottle(ThrottleConfig{
		RPS:   0.001,
		Burst: 1,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Tenant")
		},
	})
	h := th.middleware(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, "1.1.1.1:1", map[string]string{"X-Tenant": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "2.2.2.2:2", map[string]string{"X-Tenant": "a"}).Code)
	assert.Equal(t, http.StatusOK, serve(h, "1.1.1.1:1", map[string]string{"X-Tenant": "b"}).Code)
}

func TestThrottle_Refill(t *testing.T) {
	th := newThrottle(ThrottleConfig{RPS: 1, Burst: 1})
	now := time.Now()

	assert.True(t, th.allow("c", now))
	assert.False(t, th.allow("c", now))
	assert.True(t, th.allow("c", now.Add(time.Second)))
	assert.Equal(t, "1", th.retryAfter())
}

func TestThrottle_Evict(t *testing.T) {
	th := newThrottle(ThrottleConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()

	th.allow("old", now)
	th.allow("fresh", now.Add(50*time.Second))
	th.evict(now.Add(time.Minute))

	th.mu.Lock()
	defer th.mu.Unlock()
	require.Len(t, th.clients, 1)
	assert.Contains(t, th.clients, "fresh")
}

func TestThrottle_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Throttle(ctx, ThrottleConfig{RPS: 10, Burst: 1, IdleTTL: time.Millisecond})(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1:1", nil).Code)
	cancel()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		header    map[string]string
		want      string
		forwarded string
	}{
		{"RemoteAddr", "192.0.2.1:80", nil, "192.0.2.1", "192.0.2.1"},
		{"NoPort", "192.0.2.1", nil, "192.0.2.1", "192.0.2.1"},
		{"XRealIP", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1", "198.51.100.7"},
		{"XFFWins", "10.0.0.1:80", map[string]string{
			"X-Forwarded-For": "203.0.113.9",
			"X-Real-IP":       "198.51.100.7",
		}, "10.0.0.1", "203.0.113.9"},
		{"EmptyXFF", "10.0.0.1:80", map[string]string{"X-Forwarded-For": " , 203.0.113.9"}, "10.0.0.1", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
			assert.Equal(t, tt.forwarded, ForwardedClientIP(r))
		})
	}
}
