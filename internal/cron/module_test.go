package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/native/nativetest"
	"github.com/flemzord/tgbridge/internal/session"
)

func moduleContext(t *testing.T, conf string) *core.AppContext {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(conf), &node))
	return core.NewAppContext(nil, t.TempDir()).
		WithModuleConfigs(map[string]yaml.Node{"cron.scheduler": *node.Content[0]})
}

func TestModule_SweepOnly(t *testing.T) {
	b := bridge.New(nativetest.New(1), bridge.Config{}, bridge.Options{})
	appCtx := moduleContext(t, "sweep_schedule: \"@every 10s\"\n")
	appCtx.RegisterService(bridge.ServiceName, b)

	mod, err := appCtx.LoadModule("cron.scheduler")
	require.NoError(t, err)

	s, err := core.Service[*Scheduler](appCtx, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending_sweep"}, s.Jobs())
	require.NoError(t, s.Trigger("pending_sweep"))

	require.NoError(t, mod.(core.Starter).Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, mod.(core.Stopper).Stop(ctx))
}

func TestModule_WithSessions(t *testing.T) {
	b := bridge.New(nativetest.New(1), bridge.Config{}, bridge.Options{})
	mgr := session.NewManager(b, nil, session.Config{}, t.TempDir(), nil)

	appCtx := moduleContext(t, "report_grace: 1m\n")
	appCtx.RegisterService(bridge.ServiceName, b)
	appCtx.RegisterService(session.ServiceName, mgr)

	mod, err := appCtx.LoadModule("cron.scheduler")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mod.(*Module).config.ReportGrace)

	s, err := core.Service[*Scheduler](appCtx, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending_sweep", "session_report"}, s.Jobs())
	require.NoError(t, s.Trigger("session_report"))
}

func TestModule_RequiresBridge(t *testing.T) {
	appCtx := moduleContext(t, "{}\n")
	_, err := appCtx.LoadModule("cron.scheduler")
	require.ErrorContains(t, err, bridge.ServiceName)
}

func TestModule_InvalidSchedule(t *testing.T) {
	appCtx := moduleContext(t, "sweep_schedule: nope\n")
	appCtx.RegisterService(bridge.ServiceName, bridge.New(nativetest.New(1), bridge.Config{}, bridge.Options{}))
	_, err := appCtx.LoadModule("cron.scheduler")
	require.ErrorContains(t, err, "invalid schedule")
}
