package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/session"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}

	mod := info.New()
	if _, ok := mod.(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}

	node := mustYAMLNode(t, "{}")
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
event_buffer: 16
auth:
  bearer_token: "my-token"
`)

	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.config.Auth.BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
	if g.config.EventBuffer != 16 {
		t.Errorf("EventBuffer = %d, want 16", g.config.EventBuffer)
	}
	if g.config.Auth.AttemptsPerMinute != 120 {
		t.Errorf("AttemptsPerMinute = %d, want default 120", g.config.Auth.AttemptsPerMinute)
	}
}

func TestGateway_Provision(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	appCtx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	reg := prometheus.NewRegistry()
	appCtx.RegisterService(bridge.MetricsService, prometheus.Registerer(reg))

	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if g.metrics == nil {
		t.Error("metrics should be initialized")
	}
	if g.gatherer == nil {
		t.Error("gatherer should come from the registry")
	}
	if g.authLimiter == nil || g.authLimiter.Capacity() != 120 {
		t.Error("auth limiter should use the default attempts per minute")
	}
}

func TestGateway_ValidateGoodAddress(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	g.config.Bind = "127.0.0.1:8080"
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGateway_ValidateBadAddress(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	g.config.Bind = "not a valid address::"
	if err := g.Validate(); err == nil {
		t.Error("expected validation error for bad address")
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// doGetWithBearer makes a GET request with a bearer token.
func doGetWithBearer(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func newTestGateway(t *testing.T, addr string, auth AuthConfig) *Gateway {
	t.Helper()
	appCtx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())

	g := &Gateway{}
	g.config = Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return g
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	g := newTestGateway(t, addr, AuthConfig{})

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// No bridge registered: the gateway still serves, but reports degraded.
	resp := doGet(t, "http://"+addr+"/health")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("health.Status = %q, want %q", health.Status, "degraded")
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_StartWithServices(t *testing.T) {
	t.Parallel()

	backend := newTestBackend(t)
	addr := freeAddr(t)
	appCtx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir())
	reg := prometheus.NewRegistry()
	appCtx.RegisterService(bridge.MetricsService, prometheus.Registerer(reg))
	appCtx.RegisterService(bridge.ServiceName, backend.bridge)
	appCtx.RegisterService(session.ServiceName, backend.sessions)

	g := &Gateway{}
	g.config = Config{Bind: addr}
	g.config.defaults()
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = g.Stop(context.Background()) }()

	resp := doGet(t, "http://"+addr+"/health")
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_ = resp.Body.Close()
	if !health.Bridge {
		t.Error("bridge_running = false, want true")
	}
	if health.Sessions["good"] != session.StateAuthorized {
		t.Errorf("sessions[good] = %q", health.Sessions["good"])
	}

	metrics := doGet(t, "http://"+addr+"/metrics")
	body, _ := io.ReadAll(metrics.Body)
	_ = metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", metrics.StatusCode)
	}
	if !strings.Contains(string(body), `tgbridge_gateway_requests_total{code="503",route="/health"} 1`) {
		t.Errorf("metrics missing health request counter:\n%s", body)
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	g := newTestGateway(t, addr, AuthConfig{})

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = g.Stop(context.Background()) }()

	// /status should return 404 without auth configured.
	resp := doGet(t, "http://"+addr+"/status")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want 404 or 405 (not mounted)", resp.StatusCode)
	}

	// /api/sessions should also not be accessible.
	resp2 := doGet(t, "http://"+addr+"/api/sessions")
	_ = resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound && resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("sessions code = %d, want 404 or 405 (not mounted)", resp2.StatusCode)
	}
}

func TestGateway_AdminWithAuth(t *testing.T) {
	t.Parallel()

	addr := freeAddr(t)
	g := newTestGateway(t, addr, AuthConfig{BearerToken: "test-token"})

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = g.Stop(context.Background()) }()

	// Without token → 401.
	resp := doGet(t, "http://"+addr+"/status")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// With valid token → 200.
	resp2 := doGetWithBearer(t, "http://"+addr+"/status", "test-token")
	_ = resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("auth status = %d, want %d", resp2.StatusCode, http.StatusOK)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
