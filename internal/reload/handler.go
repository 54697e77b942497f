package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/tgbridge/internal/config"
	"github.com/flemzord/tgbridge/internal/core"
)

// Handler reloads application configuration and notifies modules.
// Reloads are serialized: SIGHUP, the file watcher and the admin endpoint
// may all trigger one.
type Handler struct {
	mu       sync.Mutex
	app      *core.App
	base     *core.AppContext
	logger   *slog.Logger
	onConfig func(*config.Config)
}

// Options configures a Handler.
type Options struct {
	Logger *slog.Logger

	// OnConfig, when set, sees every validated configuration before the
	// modules do, e.g. to register new secrets with the log redactor.
	OnConfig func(*config.Config)
}

// NewHandler creates a reload handler. Reloaded modules see the services
// registered on base.
func NewHandler(app *core.App, base *core.AppContext, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = base.Logger
	}
	return &Handler{
		app:      app,
		base:     base,
		logger:   opts.Logger,
		onConfig: opts.OnConfig,
	}
}

// HandleReload loads a fresh config from disk, validates it, and calls Reload
// on all modules that implement core.Reloader.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.HandleReloadFromConfig(ctx, cfg)
}

// HandleReloadFromConfig reloads modules from an already-validated config.
// Modules added to or removed from the config are not started or stopped;
// that takes a restart.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	if h.onConfig != nil {
		h.onConfig(cfg)
	}
	if err := h.app.ReloadModules(h.base.WithModuleConfigs(cfg.Modules)); err != nil {
		return fmt.Errorf("reloading modules: %w", err)
	}

	h.logger.Info("configuration reloaded successfully")
	return nil
}
