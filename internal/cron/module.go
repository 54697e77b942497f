package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/session"
)

// ServiceName is where the module registers its *Scheduler.
const ServiceName = "cron.scheduler"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the cron.scheduler module configuration.
type Config struct {
	SweepSchedule  string        `yaml:"sweep_schedule"`
	ReportSchedule string        `yaml:"report_schedule"`
	ReportGrace    time.Duration `yaml:"report_grace"`
}

func (c *Config) defaults() {
	if c.ReportGrace <= 0 {
		c.ReportGrace = 5 * time.Minute
	}
}

// Module schedules the housekeeping jobs of the bridge and sessions.
type Module struct {
	config    Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cron.scheduler",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("cron: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The sweep job needs the bridge;
// the report job is added only when sessions are configured.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.scheduler = NewScheduler(m.logger)

	b, err := core.Service[*bridge.Bridge](ctx, bridge.ServiceName)
	if err != nil {
		return fmt.Errorf("cron: %w", err)
	}
	if err := m.scheduler.RegisterJob(&PendingSweepJob{
		Sweeper:      b,
		Logger:       m.logger,
		ScheduleExpr: m.config.SweepSchedule,
	}); err != nil {
		return err
	}

	if mgr, err := core.Service[*session.Manager](ctx, session.ServiceName); err == nil {
		if err := m.scheduler.RegisterJob(&SessionReportJob{
			Sessions:     mgr,
			Grace:        m.config.ReportGrace,
			Logger:       m.logger,
			ScheduleExpr: m.config.ReportSchedule,
		}); err != nil {
			return err
		}
	}

	ctx.RegisterService(ServiceName, m.scheduler)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	return m.scheduler.Start()
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}
