package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	modules   = make(map[string]ModuleInfo)
	modulesMu sync.RWMutex
)

// RegisterModule adds a module to the process-wide registry. Modules call it
// from init, so importing a module package is enough to make it loadable.
// It panics on an empty ID, a nil constructor or a duplicate ID.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("core: module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()
	if _, dup := modules[string(info.ID)]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	modules[string(info.ID)] = info
}

// GetModule looks up a registered module.
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[id]
	return info, ok
}

// GetModules returns every registered module in load order.
func GetModules() []ModuleInfo {
	return filterModules(func(string) bool { return true })
}

// GetModulesByNamespace returns the registered modules of one namespace,
// e.g. "engine" for every available engine binding.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."
	return filterModules(func(id string) bool { return strings.HasPrefix(id, prefix) })
}

func filterModules(keep func(id string) bool) []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var out []ModuleInfo
	for id, info := range modules {
		if keep(id) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int {
		return CompareLoadOrder(a.ID, b.ID)
	})
	return out
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]ModuleInfo)
}
