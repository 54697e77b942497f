// Package telemetry installs the process-wide OpenTelemetry tracer
// provider. Bridge calls are traced through otel.Tracer, so spans are
// exported only when this module is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the telemetry.otlp module configuration.
type Config struct {
	// Endpoint is host:port of an OTLP/HTTP collector.
	Endpoint string            `yaml:"endpoint"`
	URLPath  string            `yaml:"url_path"`
	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
	Timeout  time.Duration     `yaml:"timeout"`

	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root spans kept, in [0, 1].
	SampleRatio *float64 `yaml:"sample_ratio"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "tgbridge"
	}
	if c.SampleRatio == nil {
		one := 1.0
		c.SampleRatio = &one
	}
}

func (c *Config) validate() error {
	if r := *c.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("sample_ratio %v out of [0, 1]", r)
	}
	return nil
}

// Module exports spans over OTLP/HTTP.
type Module struct {
	config   Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
	previous trace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otlp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The provider is installed
// globally here so modules provisioned later pick it up.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	if err := m.config.validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	m.logger = ctx.Logger

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(m.config.Endpoint),
		otlptracehttp.WithTimeout(m.config.Timeout),
	}
	if m.config.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(m.config.URLPath))
	}
	if m.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(m.config.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.config.Headers))
	}

	// The exporter connects lazily, so a missing collector only shows up
	// as export errors in the log.
	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", m.config.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*m.config.SampleRatio))),
	)
	m.previous = otel.GetTracerProvider()
	otel.SetTracerProvider(m.provider)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		m.logger.Warn("telemetry: export failed", "error", err)
	}))

	m.logger.Info("telemetry: tracing enabled",
		"endpoint", m.config.Endpoint,
		"sample_ratio", *m.config.SampleRatio,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.provider == nil {
		return errors.New("telemetry: tracer provider not initialized")
	}
	return nil
}

// Stop implements core.Stopper. It flushes buffered spans and restores
// the provider that was installed before.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	err := m.provider.Shutdown(ctx)
	otel.SetTracerProvider(m.previous)
	if err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}
