//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

// adminKey matches KEYGATE_ADMIN_KEY in docker-compose.test.yml.
const adminKey = "integration-admin-key"

var (
	baseURL    string
	httpClient *http.Client
)

// Response types, defined locally to keep tests black-box (no internal imports).

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type quota struct {
	Limit         int `json:"limit"`
	WindowSeconds int `json:"windowSeconds"`
}

type createdKey struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Quota     quota     `json:"quota"`
}

type maskedKey struct {
	Key             string    `json:"key"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Quota           quota     `json:"quota"`
	TokensRemaining int       `json:"tokensRemaining"`
	Expired         bool      `json:"expired"`
}

type keyList struct {
	Keys []maskedKey `json:"keys"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Create coverage output directory for the instrumented binary.
	if err := os.MkdirAll("coverdir", 0o777); err != nil {
		log.Fatalf("create coverdir: %v", err)
	}

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	// Start the stub backend and the gateway. Liveness is the gate here:
	// readiness also depends on the backend.
	err = dc.
		WaitForService("gateway", wait.ForHTTP("/livez").WithPort("3004/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	gateway, err := dc.ServiceContainer(ctx, "gateway")
	if err != nil {
		log.Fatalf("gateway container: %v", err)
	}

	host, err := gateway.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}

	mappedPort, err := gateway.MappedPort(ctx, "3004/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	baseURL = fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	httpClient = &http.Client{Timeout: 10 * time.Second}
	log.Printf("Gateway available at %s", baseURL)

	result := m.Run()

	// Stop the gateway gracefully so the coverage-instrumented binary
	// flushes coverage data to GOCOVERDIR (bind-mounted to ./coverdir).
	// The compose file sets stop_signal: SIGINT because app.Run handles
	// SIGINT (not SIGTERM) for graceful shutdown.
	stopTimeout := 30 * time.Second
	if err := gateway.Stop(ctx, &stopTimeout); err != nil {
		log.Printf("stop gateway container: %v", err)
	}

	if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
		log.Printf("compose down: %v", err)
	}

	return result
}

// HTTP helpers.

func do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	return resp
}

func doGet(t *testing.T, path string) *http.Response {
	t.Helper()
	return do(t, http.MethodGet, path, nil, nil)
}

func asAdmin() map[string]string {
	return map[string]string{"X-Admin-Key": adminKey}
}

func withKey(key string) map[string]string {
	return map[string]string{"X-API-Key": key}
}

// createKey issues a key through the admin API.
func createKey(t *testing.T, body any) createdKey {
	t.Helper()

	resp := do(t, http.MethodPost, "/admin/api-keys", body, asAdmin())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create key: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[createdKey](t, resp)
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	return v
}
