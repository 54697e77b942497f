package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/cron"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/security"
	"github.com/flemzord/tgbridge/internal/session"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It exposes health, metrics, status,
// admin and live event endpoints. It is a leaf module; nothing imports it.
type Gateway struct {
	config      Config
	appCtx      *core.AppContext
	logger      *slog.Logger
	server      *http.Server
	metrics     *httpMetrics
	authLimiter *ratelimit.TokenBucket[string]
	startedAt   time.Time
	done        chan struct{}

	// Resolved lazily at Start() via service registry.
	bridge     *bridge.Bridge
	sessions   *session.Manager
	scheduler  *cron.Scheduler
	gatherer   prometheus.Gatherer
	reloader   ConfigReloader
	audit      *security.AuditLogger
	configPath string
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.done = make(chan struct{})

	var reg prometheus.Registerer
	if r, err := core.Service[prometheus.Registerer](ctx, bridge.MetricsService); err == nil {
		reg = r
		if gatherer, ok := r.(prometheus.Gatherer); ok {
			g.gatherer = gatherer
		}
	}
	metrics, err := newHTTPMetrics(reg)
	if err != nil {
		return fmt.Errorf("gateway: registering metrics: %w", err)
	}
	g.metrics = metrics

	limiter, err := ratelimit.NewTokenBucket[string](g.config.Auth.AttemptsPerMinute, time.Minute/time.Duration(g.config.Auth.AttemptsPerMinute))
	if err != nil {
		return fmt.Errorf("gateway: auth limiter: %w", err)
	}
	g.authLimiter = limiter
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// resolve binds the optional services registered by other modules.
// Missing services degrade the matching endpoints instead of failing.
func (g *Gateway) resolve() {
	if b, err := core.Service[*bridge.Bridge](g.appCtx, bridge.ServiceName); err == nil {
		g.bridge = b
	}
	if m, err := core.Service[*session.Manager](g.appCtx, session.ServiceName); err == nil {
		g.sessions = m
	}
	if s, err := core.Service[*cron.Scheduler](g.appCtx, cron.ServiceName); err == nil {
		g.scheduler = s
	}
	if r, err := core.Service[ConfigReloader](g.appCtx, "reload.handler"); err == nil {
		g.reloader = r
	}
	if p, err := core.Service[string](g.appCtx, "config.path"); err == nil {
		g.configPath = p
	}
	if a, err := core.Service[*security.AuditLogger](g.appCtx, security.AuditService); err == nil {
		g.audit = a
	}
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolve()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
// Event streams are told to close first since Shutdown does not wait for
// hijacked connections.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	close(g.done)

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
