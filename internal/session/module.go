package session

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/kvstore"
)

// ServiceName is where the module registers its *Manager.
const ServiceName = "session.manager"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module runs the configured sessions on top of the bridge.
type Module struct {
	config  Config
	logger  *slog.Logger
	manager *Manager
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "session.manager",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("session: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	b, err := core.Service[*bridge.Bridge](ctx, bridge.ServiceName)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	// The store is optional; without it session state is not persisted.
	store, err := core.Service[kvstore.Store](ctx, kvstore.ServiceName)
	if err != nil {
		m.logger.Warn("no key-value store configured, session state will not be persisted")
		store = nil
	}

	m.manager = NewManager(b, store, m.config, ctx.DataDir, m.logger)
	ctx.RegisterService(ServiceName, m.manager)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	return m.manager.Start(context.Background())
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	return m.manager.Stop(ctx)
}

// Manager returns the provisioned manager.
func (m *Module) Manager() *Manager { return m.manager }
