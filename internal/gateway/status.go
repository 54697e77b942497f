package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/session"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   int64              `json:"uptime_seconds"`
	Bridge   *bridge.Status     `json:"bridge,omitempty"`
	Sessions []session.Snapshot `json:"sessions"`
	Jobs     []string           `json:"jobs,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:   int64(time.Since(g.startedAt).Seconds()),
			Sessions: []session.Snapshot{},
		}
		if g.bridge != nil {
			st := g.bridge.Status()
			resp.Bridge = &st
		}
		if g.sessions != nil {
			resp.Sessions = g.sessions.Sessions()
		}
		if g.scheduler != nil {
			resp.Jobs = g.scheduler.Jobs()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
