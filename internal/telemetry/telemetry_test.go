package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgbridge/internal/core"
)

func load(t *testing.T, conf string) (core.Module, error) {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(conf), &node))
	appCtx := core.NewAppContext(nil, t.TempDir()).
		WithModuleConfigs(map[string]yaml.Node{"telemetry.otlp": *node.Content[0]})
	return appCtx.LoadModule("telemetry.otlp")
}

// Tests below swap the global tracer provider and must not run in parallel.

func TestModule_ExportsSpansOnStop(t *testing.T) {
	var posts atomic.Int32
	var lastPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		lastPath.Store(r.URL.Path)
		posts.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	mod, err := load(t, "endpoint: "+endpoint+"\ninsecure: true\nservice_name: test\n")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "tdlib.call")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, mod.(core.Stopper).Stop(ctx))

	assert.GreaterOrEqual(t, posts.Load(), int32(1))
	assert.Equal(t, "/v1/traces", lastPath.Load())
}

func TestModule_Defaults(t *testing.T) {
	mod, err := load(t, "{}\n")
	require.NoError(t, err)
	m := mod.(*Module)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})

	assert.Equal(t, "localhost:4318", m.config.Endpoint)
	assert.Equal(t, "tgbridge", m.config.ServiceName)
	assert.InDelta(t, 1.0, *m.config.SampleRatio, 0)
	assert.Same(t, m.provider, otel.GetTracerProvider())
}

func TestModule_RejectsSampleRatio(t *testing.T) {
	_, err := load(t, "sample_ratio: 1.5\n")
	require.ErrorContains(t, err, "sample_ratio")
}

func TestModule_StopWithoutProvision(t *testing.T) {
	require.NoError(t, (&Module{}).Stop(context.Background()))
}
