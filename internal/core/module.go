package core

import "strings"

// ModuleID identifies a module. It is namespaced with dots, e.g.
// "bridge.tdlib" or "plugin.joinrequests".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot.
func (id ModuleID) Name() string {
	_, name, _ := strings.Cut(string(id), ".")
	return name
}

// PluginNamespace is the namespace of modules whose failures are isolated:
// a plugin that fails to load or start is disabled and the process goes on.
const PluginNamespace = "plugin"

// IsPlugin reports whether id belongs to the plugin namespace.
func (id ModuleID) IsPlugin() bool {
	return id.Namespace() == PluginNamespace
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is implemented by every module. Optional behaviour is discovered
// through the lifecycle interfaces (Configurable, Provisioner, ...).
type Module interface {
	ModuleInfo() ModuleInfo
}

// loadTiers orders namespaces so that a module can resolve, during
// Provision, the services of every namespace listed before its own.
// Unknown namespaces come after the last tier; plugins always load last.
var loadTiers = []string{"store", "telemetry", "engine", "bridge", "session", "cron", "gateway"}

// Tier returns the load position of id's namespace.
func (id ModuleID) Tier() int {
	ns := id.Namespace()
	if ns == PluginNamespace {
		return len(loadTiers) + 1
	}
	for i, t := range loadTiers {
		if t == ns {
			return i
		}
	}
	return len(loadTiers)
}

// CompareLoadOrder orders module IDs by tier, then by ID.
func CompareLoadOrder(a, b ModuleID) int {
	if ta, tb := a.Tier(), b.Tier(); ta != tb {
		return ta - tb
	}
	return strings.Compare(string(a), string(b))
}
