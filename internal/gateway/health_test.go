package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/tgbridge/internal/session"
)

func getHealth(t *testing.T, g *Gateway) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	g.handleHealth().ServeHTTP(rr, req)

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rr.Code, resp
}

func TestHealth_BridgeOnly(t *testing.T) {
	t.Parallel()

	backend := newTestBackend(t)
	g := &Gateway{bridge: backend.bridge}

	code, resp := getHealth(t, g)
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Status != "ok" || !resp.Bridge {
		t.Errorf("resp = %+v, want ok with bridge running", resp)
	}
	if resp.Sessions != nil {
		t.Errorf("sessions = %v, want omitted", resp.Sessions)
	}
}

func TestHealth_DegradedByRejectedSession(t *testing.T) {
	t.Parallel()

	backend := newTestBackend(t)
	g := &Gateway{bridge: backend.bridge, sessions: backend.sessions}

	code, resp := getHealth(t, g)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
	want := map[string]session.AuthState{
		"good": session.StateAuthorized,
		"bad":  session.StateInvalidCredentials,
	}
	for name, state := range want {
		if resp.Sessions[name] != state {
			t.Errorf("sessions[%s] = %q, want %q", name, resp.Sessions[name], state)
		}
	}
}

func TestHealth_NoBridge(t *testing.T) {
	t.Parallel()

	code, resp := getHealth(t, &Gateway{})
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Bridge {
		t.Error("bridge_running = true without a bridge")
	}
}
