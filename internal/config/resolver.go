package config

import (
	"slices"

	"github.com/flemzord/tgbridge/internal/core"
)

// Resolve returns the configured module IDs in load order: by namespace
// tier (store, engine, bridge, session, ... plugin), then by ID.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return core.CompareLoadOrder(core.ModuleID(a), core.ModuleID(b))
	})
	return ids
}
