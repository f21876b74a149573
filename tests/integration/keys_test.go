//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestAdmin_Forbidden(t *testing.T) {
	for _, headers := range []map[string]string{nil, {"X-Admin-Key": "wrong"}} {
		resp := do(t, http.MethodGet, "/admin/api-keys", nil, headers)
		resp.Body.Close()

		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	}
}

func TestKeyLifecycle(t *testing.T) {
	key := createKey(t, map[string]any{"quota": quota{Limit: 2, WindowSeconds: 3600}})
	if len(key.Key) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(key.Key))
	}
	if key.Quota.Limit != 2 || key.Quota.WindowSeconds != 3600 {
		t.Fatalf("unexpected quota %+v", key.Quota)
	}

	// Listed masked.
	resp := do(t, http.MethodGet, "/admin/api-keys", nil, asAdmin())
	list := decodeJSON[keyList](t, resp)
	resp.Body.Close()

	masked := key.Key[:8] + "..." + key.Key[len(key.Key)-8:]
	found := false
	for _, k := range list.Keys {
		if strings.Contains(k.Key, key.Key) {
			t.Fatal("listing exposes a full secret")
		}
		if k.Key == masked {
			found = true
		}
	}
	if !found {
		t.Fatalf("masked key %q not listed", masked)
	}

	// Two admissions, then throttled.
	for i := 0; i < 2; i++ {
		resp := do(t, http.MethodGet, "/api/tags", nil, withKey(key.Key))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
	resp = do(t, http.MethodGet, "/api/tags", nil, withKey(key.Key))
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header not present")
	}

	// Revoked keys stop working immediately.
	resp = do(t, http.MethodDelete, "/admin/api-keys/"+key.Key, nil, asAdmin())
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, "/api/tags", nil, withKey(key.Key))
	body := decodeJSON[errorResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", resp.StatusCode, body.Error)
	}

	resp = do(t, http.MethodDelete, "/admin/api-keys/"+key.Key, nil, asAdmin())
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second revoke: expected 404, got %d", resp.StatusCode)
	}
}

func TestGenerate(t *testing.T) {
	key := createKey(t, nil)

	resp := do(t, http.MethodPost, "/api/generate", map[string]any{"model": "llama3"}, withKey(key.Key))
	body := decodeJSON[errorResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(body.Error, "model and prompt") {
		t.Errorf("unexpected error %q", body.Error)
	}

	resp = do(t, http.MethodPost, "/api/generate",
		map[string]any{"model": "llama3", "prompt": "hello", "stream": false},
		withKey(key.Key),
	)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected backend response relayed with 200, got %d", resp.StatusCode)
	}
}

func TestMissingAPIKey(t *testing.T) {
	resp := do(t, http.MethodPost, "/api/embeddings", map[string]any{"model": "m", "prompt": "p"}, nil)
	body := decodeJSON[errorResponse](t, resp)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Error == "" {
		t.Error("expected an error message")
	}
}
