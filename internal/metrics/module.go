package metrics

import (
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// NewRegistry returns a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newRecorder(cfg *config.Config, reg *prometheus.Registry) Recorder {
	if !cfg.Metrics.Enabled {
		return NopRecorder{}
	}
	return NewCollector(reg)
}

// Module provides the registry and the Recorder used by the handlers
var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		newRecorder,
	),
)
