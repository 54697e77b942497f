// Package app provides the shared entry point for the tgbridge binary.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/tgbridge/internal/config"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/reload"
	"github.com/flemzord/tgbridge/internal/security"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides data_dir from the configuration file.
	DataDir string

	// LogLevel overrides log.level from the configuration file.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// WatchInterval is how often the configuration file is checked for
	// changes. Defaults to the watcher's own default.
	WatchInterval time.Duration
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM. SIGHUP and file-change events trigger a live configuration reload
// for modules that implement core.Reloader.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with the shutdown signal replaced by ctx.
func RunContext(ctx context.Context, params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	redactor := security.NewRedactor()
	redactor.AddLiterals(collectSecrets(cfg)...)

	logger, err := newLogger(params, cfg.Log, redactor)
	if err != nil {
		return err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	if err := registerHostServices(appCtx, params, cfgPath); err != nil {
		return err
	}

	auditFile, err := os.OpenFile(filepath.Join(dataDir, auditLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer func() { _ = auditFile.Close() }()
	appCtx.RegisterService(security.AuditService, security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   auditFile,
		Redactor: redactor,
	}))

	application := core.NewApp(appCtx)
	if err := application.LoadModules(config.Resolve(cfg)); err != nil {
		return err
	}

	handler := reload.NewHandler(application, appCtx, reload.Options{
		Logger: logger,
		OnConfig: func(c *config.Config) {
			redactor.AddLiterals(collectSecrets(c)...)
		},
	})
	appCtx.RegisterService(reloadService, handler)

	logger.Info("starting tgbridge",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
		"data_dir", dataDir,
	)
	if err := application.Start(); err != nil {
		return err
	}
	if disabled := application.Disabled(); len(disabled) > 0 {
		logger.Warn("some plugins were disabled", "modules", disabled)
	}

	// --- signal handling ---
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(hupCh)

	// --- file watcher ---
	watcher := reload.NewWatcher(reload.WatcherConfig{
		ConfigPath:   cfgPath,
		PollInterval: params.WatchInterval,
	})
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher.Start(watchCtx)
	defer watcher.Stop()

	logger.Info("tgbridge ready", "modules", len(application.Modules()))

	// --- main event loop ---
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			application.Stop()
			logger.Info("shutdown complete")
			return nil
		case <-hupCh:
			logger.Info("SIGHUP received, reloading configuration")
			if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
				logger.Error("reload failed", "error", err)
			}
		case evt := <-watcher.Events():
			logger.Info("config file changed, reloading", "path", evt.ConfigPath)
			if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

func newLogger(params RunParams, cfg config.LogConfig, redactor *security.Redactor) (*slog.Logger, error) {
	levelName := params.LogLevel
	if levelName == "" {
		levelName = cfg.Level
	}
	var level slog.Level
	if levelName != "" {
		if err := level.UnmarshalText([]byte(levelName)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor)), nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/tgbridge/tgbridge.yaml, then
// ~/.config/tgbridge/tgbridge.yaml, then ./tgbridge.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "tgbridge", "tgbridge.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "tgbridge", "tgbridge.yaml"))
	}

	candidates = append(candidates, "tgbridge.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/tgbridge if set, otherwise ~/.local/share/tgbridge.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "tgbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tgbridge")
}
