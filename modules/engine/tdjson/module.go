// Package tdjson provides the native TDLib engine through cgo bindings to
// libtdjson. Build with -tags tdjson and the TDLib headers and shared
// library installed; without the tag the module loads but refuses to
// provision.
package tdjson

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/native"
	"github.com/flemzord/tgbridge/internal/tlrpc"
	"github.com/flemzord/tgbridge/internal/tlrpc/api"
)

// ErrUnavailable is returned when the binary was built without libtdjson.
var ErrUnavailable = errors.New("tdjson: built without libtdjson (rebuild with -tags tdjson)")

// Config holds the engine module configuration.
type Config struct {
	// LogFile, when set, redirects TDLib's own log through setLogStream.
	LogFile string `yaml:"log_file"`
	// LogMaxSize is the rotation size of LogFile in bytes.
	LogMaxSize int64 `yaml:"log_max_size"`
}

func (c *Config) defaults() {
	if c.LogMaxSize <= 0 {
		c.LogMaxSize = 10 << 20
	}
}

// openEngine is replaced in tests.
var openEngine = open

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module registers the process-wide engine under bridge.EngineService.
type Module struct {
	config Config
	logger *slog.Logger
	engine native.Engine
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "engine.tdjson",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("tdjson: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	eng, err := openEngine(m.config)
	if err != nil {
		return err
	}
	if m.config.LogFile != "" {
		if err := setLogStream(eng, m.config); err != nil {
			return err
		}
	}
	m.engine = eng
	ctx.RegisterService(bridge.EngineService, eng)
	m.logger.Info("tdlib engine loaded", "log_file", m.config.LogFile)
	return nil
}

// setLogStream is one of the few methods TDLib accepts synchronously.
func setLogStream(eng native.Engine, cfg Config) error {
	req, err := tlrpc.Encode(&api.SetLogStream{LogStream: &api.LogStreamFile{
		Path:        cfg.LogFile,
		MaxFileSize: cfg.LogMaxSize,
	}})
	if err != nil {
		return fmt.Errorf("tdjson: setLogStream: %w", err)
	}
	res, err := eng.Execute(string(req))
	if err != nil {
		return fmt.Errorf("tdjson: setLogStream: %w", err)
	}
	if err := tlrpc.RemoteErrorOf([]byte(res)); err != nil {
		return fmt.Errorf("tdjson: setLogStream: %w", err)
	}
	return nil
}

// Stop implements core.Stopper. It runs after the bridge has stopped
// polling.
func (m *Module) Stop(_ context.Context) error {
	if c, ok := m.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
