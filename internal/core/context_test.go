package core

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// stepModule records each lifecycle hook it goes through. Its Configure
// decodes a poll_timeout field the way the bridge module reads its section.
type stepModule struct {
	id    ModuleID
	steps *[]string
	fail  string

	pollTimeout string
	scoped      *AppContext
}

func (m *stepModule) ModuleInfo() ModuleInfo {
	cp := *m
	return ModuleInfo{ID: m.id, New: func() Module { c := cp; return &c }}
}

func (m *stepModule) record(step string) error {
	*m.steps = append(*m.steps, step)
	if m.fail == step {
		return errors.New(step + " refused")
	}
	return nil
}

func (m *stepModule) Configure(node *yaml.Node) error {
	var raw struct {
		PollTimeout string `yaml:"poll_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	m.pollTimeout = raw.PollTimeout
	return m.record("configure")
}

func (m *stepModule) Provision(ctx *AppContext) error {
	m.scoped = ctx
	return m.record("provision")
}

func (m *stepModule) Validate() error { return m.record("validate") }

// plainModule has no lifecycle hooks besides Provision.
type plainModule struct {
	id          ModuleID
	provisioned *bool
}

func (m *plainModule) ModuleInfo() ModuleInfo {
	cp := *m
	return ModuleInfo{ID: m.id, New: func() Module { c := cp; return &c }}
}

func (m *plainModule) Provision(_ *AppContext) error {
	*m.provisioned = true
	return nil
}

func moduleNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return *doc.Content[0]
}

func TestNewAppContext_Defaults(t *testing.T) {
	ctx := NewAppContext(nil, "/var/lib/tgbridge")
	if ctx.Logger != slog.Default() {
		t.Error("nil logger should fall back to slog.Default()")
	}
	if ctx.DataDir != "/var/lib/tgbridge" {
		t.Errorf("DataDir = %q", ctx.DataDir)
	}
	if _, ok := ctx.ModuleConfig(); ok {
		t.Error("root context has no module config")
	}
}

func TestAppContext_LoadModuleLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		fail      string
		wantSteps []string
		wantErr   string
	}{
		{
			name:      "configured",
			config:    "poll_timeout: 250ms",
			wantSteps: []string{"configure", "provision", "validate"},
		},
		{
			name:      "no section skips configure",
			wantSteps: []string{"provision", "validate"},
		},
		{
			name:      "configure error",
			config:    "poll_timeout: 1s",
			fail:      "configure",
			wantSteps: []string{"configure"},
			wantErr:   "configuring module bridge.steps",
		},
		{
			name:      "provision error",
			fail:      "provision",
			wantSteps: []string{"provision"},
			wantErr:   "provisioning module bridge.steps",
		},
		{
			name:      "validate error",
			fail:      "validate",
			wantSteps: []string{"provision", "validate"},
			wantErr:   "validating module bridge.steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var steps []string
			RegisterModule(&stepModule{id: "bridge.steps", steps: &steps, fail: tt.fail})

			ctx := NewAppContext(slog.New(slog.DiscardHandler), "/data")
			if tt.config != "" {
				ctx = ctx.WithModuleConfigs(map[string]yaml.Node{
					"bridge.steps": moduleNode(t, tt.config),
				})
			}

			mod, err := ctx.LoadModule("bridge.steps")
			if !slices.Equal(steps, tt.wantSteps) {
				t.Errorf("steps = %v, want %v", steps, tt.wantSteps)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadModule() error = %v", err)
			}
			if tt.config != "" && mod.(*stepModule).pollTimeout != "250ms" {
				t.Errorf("pollTimeout = %q, want 250ms", mod.(*stepModule).pollTimeout)
			}
		})
	}
}

func TestAppContext_LoadModuleUnknown(t *testing.T) {
	t.Cleanup(resetRegistry)

	_, err := NewAppContext(nil, "/data").LoadModule("engine.missing")
	if err == nil || !strings.Contains(err.Error(), "unknown module: engine.missing") {
		t.Fatalf("err = %v", err)
	}
}

func TestAppContext_SectionIgnoredWithoutConfigure(t *testing.T) {
	t.Cleanup(resetRegistry)

	provisioned := false
	RegisterModule(&plainModule{id: "store.plain", provisioned: &provisioned})

	ctx := NewAppContext(nil, "/data").WithModuleConfigs(map[string]yaml.Node{
		"store.plain": moduleNode(t, "path: kv.db"),
	})
	if _, err := ctx.LoadModule("store.plain"); err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	if !provisioned {
		t.Error("Provision not called")
	}
}

func TestAppContext_ProvisionGetsScopedContext(t *testing.T) {
	t.Cleanup(resetRegistry)

	var buf bytes.Buffer
	var steps []string
	RegisterModule(&stepModule{id: "bridge.steps", steps: &steps})

	root := NewAppContext(slog.New(slog.NewTextHandler(&buf, nil)), "/srv/tg").
		WithModuleConfigs(map[string]yaml.Node{
			"bridge.steps":    moduleNode(t, "poll_timeout: 2s"),
			"session.manager": moduleNode(t, "api_id: 7"),
		})
	mod, err := root.LoadModule("bridge.steps")
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
	scoped := mod.(*stepModule).scoped

	if scoped.DataDir != "/srv/tg" {
		t.Errorf("DataDir = %q", scoped.DataDir)
	}
	scoped.Logger.Info("poll loop up")
	if !strings.Contains(buf.String(), "module=bridge.steps") {
		t.Errorf("scoped logger lacks module attr: %s", buf.String())
	}

	node, ok := scoped.ModuleConfig()
	if !ok {
		t.Fatal("scoped context has no module config")
	}
	var raw struct {
		PollTimeout string `yaml:"poll_timeout"`
		APIID       int    `yaml:"api_id"`
	}
	if err := node.Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if raw.PollTimeout != "2s" || raw.APIID != 0 {
		t.Errorf("ModuleConfig() decoded %+v, want only this module's section", raw)
	}
}

// engineStub stands in for the TDLib engine service.
type engineStub interface{ CreateClient() (int, error) }

type fixedEngine int

func (e fixedEngine) CreateClient() (int, error) { return int(e), nil }

func TestService_InterfaceLookupAcrossModules(t *testing.T) {
	root := NewAppContext(nil, "/data")
	root.ForModule("engine.tdjson").RegisterService("native.engine", fixedEngine(3))

	eng, err := Service[engineStub](root.ForModule("bridge.tdlib"), "native.engine")
	if err != nil {
		t.Fatalf("Service() error = %v", err)
	}
	if id, _ := eng.CreateClient(); id != 3 {
		t.Errorf("CreateClient() = %d, want 3", id)
	}

	root.RegisterService("native.engine", fixedEngine(9))
	eng, _ = Service[engineStub](root, "native.engine")
	if id, _ := eng.CreateClient(); id != 9 {
		t.Errorf("re-registered service not visible, CreateClient() = %d", id)
	}

	if _, err := Service[slog.Handler](root, "native.engine"); err == nil ||
		!strings.Contains(err.Error(), "has type core.fixedEngine") {
		t.Errorf("type mismatch err = %v", err)
	}
}
