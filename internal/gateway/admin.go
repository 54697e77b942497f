// Package gateway provides an HTTP server for administration and
// monitoring of the bridge. It binds to loopback by default and follows the
// module system pattern.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/tgbridge/internal/config"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/cron"
	"github.com/flemzord/tgbridge/internal/security"
)

// ConfigReloader re-reads the configuration file and applies it to the
// running modules.
type ConfigReloader interface {
	HandleReload(ctx context.Context, configPath string) error
}

// handleListSessions returns every session snapshot.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.sessions == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, g.sessions.Sessions())
	}
}

// handleGetSession returns one session by name.
func (g *Gateway) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if g.sessions != nil {
			for _, snap := range g.sessions.Sessions() {
				if snap.Name == name {
					writeJSON(w, http.StatusOK, snap)
					return
				}
			}
		}
		http.Error(w, "session not found", http.StatusNotFound)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Plugin    bool   `json:"plugin"`
}

// handleGetAllModules lists all compiled modules in load order.
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
				Plugin:    m.ID.IsPlugin(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleRunJob triggers a cron job outside its schedule.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.scheduler == nil {
			http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
			return
		}
		name := chi.URLParam(r, "name")
		err := g.scheduler.Trigger(name)
		g.audit.Log(security.AuditEvent{
			Type:    security.EventJobRun,
			Remote:  remoteHost(r),
			Target:  name,
			Outcome: outcome(err),
		})
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, cron.ErrUnknownJob):
			http.Error(w, "job not found", http.StatusNotFound)
		case errors.Is(err, cron.ErrJobBusy):
			http.Error(w, "job already running", http.StatusConflict)
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
}

// secretPattern matches YAML keys that likely contain secrets.
var secretPattern = regexp.MustCompile(`(?i)(secret|token|pass|hash|key|phone)`)

// handleGetConfig returns the current config file with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		cfg, err := config.Load(g.configPath)
		if err != nil {
			http.Error(w, "failed to load config", http.StatusInternalServerError)
			return
		}

		modules := make(map[string]any, len(cfg.Modules))
		for id, node := range cfg.Modules {
			var v any
			if err := node.Decode(&v); err != nil {
				http.Error(w, "failed to decode module config", http.StatusInternalServerError)
				return
			}
			modules[id] = v
		}

		// Round-trip through JSON so nested YAML maps become map[string]any.
		raw, err := json.Marshal(map[string]any{
			"version":  cfg.Version,
			"data_dir": cfg.DataDir,
			"log":      map[string]string{"level": cfg.Log.Level, "format": cfg.Log.Format},
			"modules":  modules,
		})
		if err != nil {
			http.Error(w, "failed to serialize config", http.StatusInternalServerError)
			return
		}
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err != nil {
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		redactSecrets(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// redactSecrets walks a map and replaces values whose keys match the secret pattern.
func redactSecrets(m map[string]any) {
	for k, v := range m {
		if secretPattern.MatchString(k) {
			switch v.(type) {
			case map[string]any, []any, nil:
			default:
				m[k] = "***REDACTED***"
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			redactSecrets(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					redactSecrets(sub)
				}
			}
		}
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.configPath == "" || g.reloader == nil {
			http.Error(w, "reload not available", http.StatusServiceUnavailable)
			return
		}

		err := g.reloader.HandleReload(r.Context(), g.configPath)
		g.audit.Log(security.AuditEvent{
			Type:    security.EventConfigReload,
			Remote:  remoteHost(r),
			Target:  g.configPath,
			Outcome: outcome(err),
		})
		if err != nil {
			g.logger.Error("config reload failed", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// outcome renders err for an audit event.
func outcome(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
