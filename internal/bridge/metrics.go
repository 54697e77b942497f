package bridge

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Envelope routing outcomes, used as the "route" label.
const (
	routeReply    = "reply"
	routeEvent    = "event"
	routeDangling = "dangling"
	routeDropped  = "dropped"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	pending      prometheus.Gauge
	envelopes    *prometheus.CounterVec
	denials      *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	callErrors   *prometheus.CounterVec
	pollErrors   prometheus.Counter
	handlerErrs  prometheus.Counter
}

// NewMetrics creates the bridge collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "pending_calls",
			Help:      "Asynchronous calls waiting for their reply.",
		}),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "envelopes_total",
			Help:      "Envelopes received from the engine, by routing outcome.",
		}, []string{"route"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "rate_limited_total",
			Help:      "Calls refused by the rate governor, by class.",
		}, []string{"class"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "call_duration_seconds",
			Help:      "Time from issuing a call to its completion.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "mode"}),
		callErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "call_errors_total",
			Help:      "Failed calls, by method and failure kind.",
		}, []string{"method", "kind"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "poll_errors_total",
			Help:      "Errors returned by the engine's poll primitive.",
		}),
		handlerErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tgbridge",
			Subsystem: "bridge",
			Name:      "handler_errors_total",
			Help:      "Event handlers that returned an error or panicked.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.pending, err = register(reg, m.pending); err != nil {
		return nil, err
	}
	if m.envelopes, err = register(reg, m.envelopes); err != nil {
		return nil, err
	}
	if m.denials, err = register(reg, m.denials); err != nil {
		return nil, err
	}
	if m.callDuration, err = register(reg, m.callDuration); err != nil {
		return nil, err
	}
	if m.callErrors, err = register(reg, m.callErrors); err != nil {
		return nil, err
	}
	if m.pollErrors, err = register(reg, m.pollErrors); err != nil {
		return nil, err
	}
	if m.handlerErrs, err = register(reg, m.handlerErrs); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// unregisteredMetrics is used when a Dispatcher is built without metrics.
func unregisteredMetrics() *Metrics {
	m, _ := NewMetrics(nil)
	return m
}
