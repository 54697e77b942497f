package gateway

import (
	"net/http"

	"github.com/flemzord/tgbridge/internal/session"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string                       `json:"status"` // "ok" or "degraded"
	Bridge   bool                         `json:"bridge_running"`
	Sessions map[string]session.AuthState `json:"sessions,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 503 when the poll loop is down or a session can no longer log in.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.bridge != nil {
			resp.Bridge = g.bridge.Running()
		}
		if !resp.Bridge {
			resp.Status = "degraded"
		}

		if g.sessions != nil {
			resp.Sessions = make(map[string]session.AuthState)
			for _, snap := range g.sessions.Sessions() {
				resp.Sessions[snap.Name] = snap.State
				switch snap.State {
				case session.StateInvalidCredentials, session.StateClosed:
					resp.Status = "degraded"
				}
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
