package core

import (
	"context"
	"errors"
	"slices"
	"testing"
)

// lifecycleModule records Start/Stop calls into a shared log.
type lifecycleModule struct {
	id       ModuleID
	log      *[]string
	startErr error
	panicOn  string
}

func (m *lifecycleModule) ModuleInfo() ModuleInfo {
	cp := *m
	return ModuleInfo{ID: m.id, New: func() Module { c := cp; return &c }}
}

func (m *lifecycleModule) Provision(_ *AppContext) error {
	if m.panicOn == "provision" {
		panic("provision exploded")
	}
	return nil
}

func (m *lifecycleModule) Start() error {
	if m.panicOn == "start" {
		panic("start exploded")
	}
	if m.startErr != nil {
		return m.startErr
	}
	*m.log = append(*m.log, "start "+string(m.id))
	return nil
}

func (m *lifecycleModule) Stop(_ context.Context) error {
	*m.log = append(*m.log, "stop "+string(m.id))
	return nil
}

func TestApp_PluginFailuresAreIsolated(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{id: "bridge.tdlib", log: &log})
	RegisterModule(&lifecycleModule{id: "plugin.broken", log: &log, panicOn: "provision"})
	RegisterModule(&lifecycleModule{id: "plugin.flaky", log: &log, startErr: errors.New("no token")})
	RegisterModule(&lifecycleModule{id: "plugin.panics", log: &log, panicOn: "start"})
	RegisterModule(&lifecycleModule{id: "plugin.working", log: &log})

	app := NewApp(NewAppContext(nil, "/data"))
	ids := []string{"bridge.tdlib", "plugin.broken", "plugin.flaky", "plugin.panics", "plugin.working"}
	if err := app.LoadModules(ids); err != nil {
		t.Fatalf("LoadModules() error = %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	wantDisabled := []ModuleID{"plugin.broken", "plugin.flaky", "plugin.panics"}
	if got := app.Disabled(); !slices.Equal(got, wantDisabled) {
		t.Errorf("Disabled() = %v, want %v", got, wantDisabled)
	}

	app.Stop()
	want := []string{"start bridge.tdlib", "start plugin.working", "stop plugin.working", "stop bridge.tdlib"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestApp_CoreModuleFailureAborts(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{id: "store.sqlite", log: &log})
	RegisterModule(&lifecycleModule{id: "bridge.tdlib", log: &log, panicOn: "start"})

	app := NewApp(NewAppContext(nil, "/data"))
	if err := app.LoadModules([]string{"store.sqlite", "bridge.tdlib"}); err != nil {
		t.Fatalf("LoadModules() error = %v", err)
	}

	err := app.Start()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Start() error = %v, want PanicError", err)
	}
	want := []string{"start store.sqlite", "stop store.sqlite"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

// stopOnlyModule acquires its resources in Provision and has no Start.
type stopOnlyModule struct {
	id  ModuleID
	log *[]string
}

func (m *stopOnlyModule) ModuleInfo() ModuleInfo {
	cp := *m
	return ModuleInfo{ID: m.id, New: func() Module { c := cp; return &c }}
}

func (m *stopOnlyModule) Stop(_ context.Context) error {
	*m.log = append(*m.log, "stop "+string(m.id))
	return nil
}

func TestApp_StopsModulesWithoutStart(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&stopOnlyModule{id: "engine.tdjson", log: &log})
	RegisterModule(&lifecycleModule{id: "bridge.tdlib", log: &log})

	app := NewApp(NewAppContext(nil, "/data"))
	if err := app.LoadModules([]string{"engine.tdjson", "bridge.tdlib"}); err != nil {
		t.Fatalf("LoadModules() error = %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	app.Stop()

	want := []string{"start bridge.tdlib", "stop bridge.tdlib", "stop engine.tdjson"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestApp_LoadFailureOfCoreModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&lifecycleModule{id: "engine.tdjson", log: &log, panicOn: "provision"})

	app := NewApp(NewAppContext(nil, "/data"))
	if err := app.LoadModules([]string{"engine.tdjson"}); err == nil {
		t.Fatal("expected error when a non-plugin module fails to load")
	}
}

func TestAppContext_Services(t *testing.T) {
	root := NewAppContext(nil, "/data")
	child := root.ForModule("store.sqlite")

	child.RegisterService("store.kv", 42)

	got, err := Service[int](root.ForModule("session.manager"), "store.kv")
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Service() = %d, want 42", got)
	}

	if _, err := Service[string](root, "store.kv"); err == nil {
		t.Error("expected type mismatch error")
	}
	if _, err := Service[int](root, "missing"); err == nil {
		t.Error("expected missing service error")
	}
}

func TestModuleID(t *testing.T) {
	tests := []struct {
		id       ModuleID
		ns, name string
		plugin   bool
	}{
		{"plugin.joinrequests", "plugin", "joinrequests", true},
		{"bridge.tdlib", "bridge", "tdlib", false},
		{"plugins.x", "plugins", "x", false},
		{"bare", "bare", "", false},
	}
	for _, tt := range tests {
		if got := tt.id.Namespace(); got != tt.ns {
			t.Errorf("%s.Namespace() = %q, want %q", tt.id, got, tt.ns)
		}
		if got := tt.id.Name(); got != tt.name {
			t.Errorf("%s.Name() = %q, want %q", tt.id, got, tt.name)
		}
		if got := tt.id.IsPlugin(); got != tt.plugin {
			t.Errorf("%s.IsPlugin() = %v, want %v", tt.id, got, tt.plugin)
		}
	}
}

func TestCompareLoadOrder(t *testing.T) {
	ids := []ModuleID{
		"plugin.joinrequests",
		"gateway.http",
		"session.manager",
		"custom.thing",
		"bridge.tdlib",
		"engine.tdjson",
		"store.sqlite",
		"cron.sweeper",
		"telemetry.otlp",
	}
	slices.SortFunc(ids, CompareLoadOrder)
	want := []ModuleID{
		"store.sqlite",
		"telemetry.otlp",
		"engine.tdjson",
		"bridge.tdlib",
		"session.manager",
		"cron.sweeper",
		"gateway.http",
		"custom.thing",
		"plugin.joinrequests",
	}
	if !slices.Equal(ids, want) {
		t.Errorf("load order = %v, want %v", ids, want)
	}
}
