package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/native/nativetest"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/tlrpc"
	"github.com/flemzord/tgbridge/internal/tlrpc/api"
)

// echoUsers answers every getMe with a user whose id is the client id.
func echoUsers(clientID int, request string) []string {
	token, _ := tlrpc.Extra([]byte(request))
	if !strings.Contains(request, `"getMe"`) {
		return []string{`{"@type":"ok","@extra":"` + token + `"}`}
	}
	return []string{string(userReply(token, int64(clientID)))}
}

func startBridge(t *testing.T, eng *nativetest.Engine, cfg Config) *Bridge {
	t.Helper()
	cfg.PollTimeout = 5 * time.Millisecond
	b := New(eng, cfg, Options{NewToken: sequentialTokens()})
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { _ = b.Stop(context.Background()) })
	return b
}

func TestBridge_StartSetsLogVerbosity(t *testing.T) {
	eng := nativetest.New(8)
	var executed []string
	var mu sync.Mutex
	eng.OnExecute = func(req string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		executed = append(executed, req)
		return `{"@type":"ok"}`, nil
	}
	verbosity := int32(2)
	b := startBridge(t, eng, Config{LogVerbosity: &verbosity})

	assert.True(t, b.Running())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, executed, 1)
	assert.JSONEq(t, `{"@type":"setLogVerbosityLevel","new_verbosity_level":2}`, executed[0])
}

func TestBridge_StartFailsOnVerbosityError(t *testing.T) {
	eng := nativetest.New(1)
	eng.OnExecute = func(string) (string, error) {
		return `{"@type":"error","code":400,"message":"Wrong parameter"}`, nil
	}
	b := New(eng, Config{}, Options{})

	err := b.Start(context.Background())
	var rerr *tlrpc.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.False(t, b.Running())
}

func TestBridge_ExecuteRoundTrip(t *testing.T) {
	eng := nativetest.New(64)
	eng.OnSend = echoUsers
	b := startBridge(t, eng, Config{})

	var wg sync.WaitGroup
	for clientID := 1; clientID <= 10; clientID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := Execute[api.User](context.Background(), b.Dispatcher(), clientID, &api.GetMe{}, ratelimit.Key{})
			if assert.NoError(t, err) {
				assert.Equal(t, int64(clientID), user.ID)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, b.Dispatcher().Pending())
}

func TestBridge_ExecuteAppliesCallTimeout(t *testing.T) {
	eng := nativetest.New(8)
	cfg := Config{CallTimeout: 20 * time.Millisecond}
	cfg.PollTimeout = 5 * time.Millisecond
	b := New(eng, cfg, Options{})
	require.NoError(t, b.Start(context.Background()))
	defer func() { _ = b.Stop(context.Background()) }()

	_, err := Execute[api.User](context.Background(), b.Dispatcher(), 1, &api.GetMe{}, ratelimit.Key{})
	require.ErrorIs(t, err, ErrAbandoned)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, b.Dispatcher().Pending())
}

func TestBridge_OnDecodesEvents(t *testing.T) {
	eng := nativetest.New(8)
	b := startBridge(t, eng, Config{})

	got := make(chan *api.UpdateNewChatJoinRequest, 1)
	On(b.Dispatcher(), 3, func(_ context.Context, clientID int, ev *api.UpdateNewChatJoinRequest) error {
		assert.Equal(t, 3, clientID)
		got <- ev
		return nil
	})

	eng.Push(`{"@type":"updateNewChatJoinRequest","@client_id":3,"chat_id":-1001,` +
		`"request":{"@type":"chatJoinRequest","user_id":42,"date":1700000000,"bio":""}}`)

	select {
	case ev := <-got:
		assert.Equal(t, int64(-1001), ev.ChatID)
		assert.Equal(t, int64(42), ev.Request.UserID)
		assert.Nil(t, ev.Request.Bio)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBridge_StopFailsPendingCalls(t *testing.T) {
	eng := nativetest.New(8)
	cfg := Config{PollTimeout: 5 * time.Millisecond}
	b := New(eng, cfg, Options{})
	require.NoError(t, b.Start(context.Background()))

	call, err := b.Dispatcher().IssueAsync(context.Background(), AsyncRequest{
		ClientID: 1, Object: &api.GetMe{}, Expect: tlrpc.Factory[api.User](),
	})
	require.NoError(t, err)

	require.NoError(t, b.Stop(context.Background()))
	assert.False(t, b.Running())

	_, err = call.Await(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestBridge_StartAfterStop(t *testing.T) {
	b := New(nativetest.New(8), Config{PollTimeout: 5 * time.Millisecond}, Options{})
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))

	require.ErrorIs(t, b.Start(context.Background()), ErrClosed)
	assert.False(t, b.Running())
}

func TestBridge_StatusAndReconfigure(t *testing.T) {
	eng := nativetest.New(8)
	gov := mustGovernor(t, map[string]ratelimit.ClassConfig{"send": {Capacity: 3, Interval: time.Second}})
	b := New(eng, Config{}, Options{Governor: gov})

	_, err := b.Dispatcher().IssueAsync(context.Background(), AsyncRequest{
		ClientID: 1,
		Object:   &api.GetMe{},
		Expect:   tlrpc.Factory[api.User](),
		Key:      ratelimit.Key{Class: "send", Subject: "chat:1"},
	})
	require.NoError(t, err)

	st := b.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, map[string]map[string]int{"send": {"chat:1": 2}}, st.RateLimits)

	require.NoError(t, b.reconfigure(map[string]ratelimit.ClassConfig{"join": {Capacity: 1, Interval: time.Minute}}))
	assert.Equal(t, []string{"join"}, b.Dispatcher().Governor().Classes())

	err = b.reconfigure(map[string]ratelimit.ClassConfig{"bad": {}})
	require.Error(t, err)
	assert.Equal(t, []string{"join"}, b.Dispatcher().Governor().Classes(), "a rejected reload keeps the previous limits")
}

func TestBridge_CreateClient(t *testing.T) {
	eng := nativetest.New(1)
	b := New(eng, Config{}, Options{})

	first, err := b.CreateClient()
	require.NoError(t, err)
	second, err := b.CreateClient()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	eng.Close()
	_, err = b.CreateClient()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{
			name:    "verbosity out of range",
			cfg:     Config{LogVerbosity: ptr(int32(2000))},
			wantErr: "log_verbosity",
		},
		{
			name:    "pending age shorter than call timeout",
			cfg:     Config{CallTimeout: time.Minute, MaxPendingAge: time.Second},
			wantErr: "max_pending_age",
		},
		{
			name:    "bad class",
			cfg:     Config{RateLimits: map[string]ratelimit.ClassConfig{"send": {Capacity: 0, Interval: time.Second}}},
			wantErr: "rate_limits.send",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.defaults()
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestModule_Lifecycle(t *testing.T) {
	eng := nativetest.New(8)
	reg := prometheus.NewRegistry()

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`
poll_timeout: 5ms
rate_limits:
  send:
    capacity: 1
    interval: 1s
`), &node))

	appCtx := core.NewAppContext(nil, t.TempDir()).
		WithModuleConfigs(map[string]yaml.Node{"bridge.tdlib": *node.Content[0]})
	appCtx.RegisterService(EngineService, eng)
	appCtx.RegisterService(MetricsService, reg)

	mod, err := appCtx.LoadModule("bridge.tdlib")
	require.NoError(t, err)

	b, err := core.Service[*Bridge](appCtx, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, []string{"send"}, b.Dispatcher().Governor().Classes())

	require.NoError(t, mod.(core.Starter).Start())
	assert.True(t, b.Running())

	key := ratelimit.Key{Class: "send", Subject: "chat:1"}
	req := AsyncRequest{ClientID: 1, Object: &api.GetMe{}, Expect: tlrpc.Factory[api.User](), Key: key}
	_, err = b.Dispatcher().IssueAsync(context.Background(), req)
	require.NoError(t, err)
	_, err = b.Dispatcher().IssueAsync(context.Background(), req)
	require.ErrorIs(t, err, ErrRateLimited)

	count, err := testutil.GatherAndCount(reg, "tgbridge_bridge_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Reload with a larger bucket.
	var reloaded yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("rate_limits:\n  send:\n    capacity: 5\n    interval: 1s\n"), &reloaded))
	reloadCtx := core.NewAppContext(nil, t.TempDir()).
		WithModuleConfigs(map[string]yaml.Node{"bridge.tdlib": *reloaded.Content[0]}).
		ForModule("bridge.tdlib")
	require.NoError(t, mod.(core.Reloader).Reload(reloadCtx))
	_, err = b.Dispatcher().IssueAsync(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, mod.(core.Stopper).Stop(context.Background()))
	assert.Zero(t, b.Dispatcher().Pending())
}

func TestModule_RequiresEngine(t *testing.T) {
	appCtx := core.NewAppContext(nil, t.TempDir())
	_, err := appCtx.LoadModule("bridge.tdlib")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EngineService)
}
