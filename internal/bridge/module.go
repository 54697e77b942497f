package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/native"
	"github.com/flemzord/tgbridge/internal/ratelimit"
)

// Service names shared through the AppContext service registry.
const (
	// ServiceName is where the module registers its *Bridge.
	ServiceName = "bridge.tdlib"

	// EngineService is where an engine module registers its native.Engine.
	EngineService = "native.engine"

	// MetricsService is where the host registers its prometheus.Registerer.
	MetricsService = "metrics.registry"
)

const tracerName = "github.com/flemzord/tgbridge/internal/bridge"

func init() {
	core.RegisterModule(&Module{})
}

// Module exposes a Bridge to the rest of the process. Other modules find it
// under ServiceName and register their handlers during Provision.
type Module struct {
	config Config
	logger *slog.Logger
	bridge *Bridge
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "bridge.tdlib",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	engine, err := core.Service[native.Engine](ctx, EngineService)
	if err != nil {
		return fmt.Errorf("bridge: %w", err)
	}

	governor, err := ratelimit.NewGovernor(m.config.RateLimits)
	if err != nil {
		return fmt.Errorf("bridge: rate limits: %w", err)
	}

	var reg prometheus.Registerer
	if r, err := core.Service[prometheus.Registerer](ctx, MetricsService); err == nil {
		reg = r
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("bridge: registering metrics: %w", err)
	}

	m.bridge = New(engine, m.config, Options{
		Governor:    governor,
		Logger:      m.logger,
		Metrics:     metrics,
		Tracer:      otel.Tracer(tracerName),
		CallTimeout: m.config.CallTimeout,
	})
	ctx.RegisterService(ServiceName, m.bridge)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	return m.bridge.Start(context.Background())
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	return m.bridge.Stop(ctx)
}

// Reload implements core.Reloader. Only rate limits are reloadable; token
// counts restart from full buckets.
func (m *Module) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig()
	if !ok {
		return nil
	}
	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return fmt.Errorf("bridge: decoding config: %w", err)
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	if err := m.bridge.reconfigure(cfg.RateLimits); err != nil {
		return fmt.Errorf("bridge: rate limits: %w", err)
	}
	m.logger.Info("rate limits reloaded", "classes", len(cfg.RateLimits))
	return nil
}
