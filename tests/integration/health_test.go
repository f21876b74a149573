//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestLivez(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
}

func TestAPIHealth(t *testing.T) {
	resp := doGet(t, "/api/health")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[healthResponse](t, resp)
	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %q", body.Status)
	}
}

// TestReadyz checks that readiness covers the store and the backend stub.
// Readiness checks run in the background, so the first answers may lag.
func TestReadyz(t *testing.T) {
	deadline := time.Now().Add(30 * time.Second)
	for {
		resp := doGet(t, "/readyz")
		body := decodeJSON[healthResponse](t, resp)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if body.Status != "ok" {
				t.Fatalf("expected status ok, got %q", body.Status)
			}
			if len(body.Checks) != 0 {
				t.Fatalf("expected no failing checks, got %v", body.Checks)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("readyz still %d after 30s: %v", resp.StatusCode, body.Checks)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
