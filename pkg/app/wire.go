package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/config"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/session"
)

// Services the host registers before modules are provisioned.
const (
	configPathService = "config.path"
	reloadService     = "reload.handler"
)

// auditLogName is the JSONL audit trail of admin actions, under the data dir.
const auditLogName = "audit.jsonl"

// registerHostServices registers the process-wide metrics registry and the
// configuration path. Must be called before LoadModules.
func registerHostServices(appCtx *core.AppContext, params RunParams, cfgPath string) error {
	registry, err := newRegistry(params)
	if err != nil {
		return err
	}
	// Registered as a Registerer; the gateway recovers the Gatherer side.
	appCtx.RegisterService(bridge.MetricsService, prometheus.Registerer(registry))
	appCtx.RegisterService(configPathService, cfgPath)
	return nil
}

func newRegistry(params RunParams) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tgbridge_build_info",
		Help: "Build information, always 1.",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(params.Version, params.Commit).Set(1)

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering host metrics: %w", err)
		}
	}
	return registry, nil
}

// gatewaySecrets mirrors the credential fields of the gateway.http module.
type gatewaySecrets struct {
	Auth struct {
		BearerToken string `yaml:"bearer_token"`
		BasicPass   string `yaml:"basic_pass"`
	} `yaml:"auth"`
}

// collectSecrets returns every credential found in cfg, for the log
// redactor. Sections that fail to decode are skipped; their module reports
// the error during Configure.
func collectSecrets(cfg *config.Config) []string {
	var out []string

	if node, ok := cfg.Modules["session.manager"]; ok {
		var sc session.Config
		if err := node.Decode(&sc); err == nil {
			out = append(out, sc.Secrets()...)
		}
	}

	if node, ok := cfg.Modules["gateway.http"]; ok {
		var gc gatewaySecrets
		if err := node.Decode(&gc); err == nil {
			for _, s := range []string{gc.Auth.BearerToken, gc.Auth.BasicPass} {
				if s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
