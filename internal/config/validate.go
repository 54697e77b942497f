package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/flemzord/tgbridge/internal/core"
)

// namespaceRequires lists, per namespace, a namespace that must also be
// configured for its modules to provision.
var namespaceRequires = map[string]string{
	"bridge":             "engine",
	"session":            "bridge",
	"cron":               "bridge",
	core.PluginNamespace: "session",
}

// Validate checks the structural validity of a Config: the version, the
// module IDs, and that every module's dependencies are configured. Module
// specific settings are checked later by each module's Validate.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of text, json", cfg.Log.Format))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	namespaces := make(map[string][]string)
	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
			continue
		}
		ns := core.ModuleID(id).Namespace()
		namespaces[ns] = append(namespaces[ns], id)
	}

	if engines := namespaces["engine"]; len(engines) > 1 {
		errs = append(errs, fmt.Errorf("config: only one engine module may be configured, got %v", engines))
	}

	for _, ns := range sortedKeys(namespaces) {
		need, ok := namespaceRequires[ns]
		if !ok || len(namespaces[need]) > 0 {
			continue
		}
		for _, id := range namespaces[ns] {
			errs = append(errs, fmt.Errorf("config: module %q needs a %q module (available: %v)",
				id, need, registeredIn(need)))
		}
	}

	return errors.Join(errs...)
}

func registeredIn(namespace string) []string {
	var ids []string
	for _, info := range core.GetModulesByNamespace(namespace) {
		ids = append(ids, string(info.ID))
	}
	return ids
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
