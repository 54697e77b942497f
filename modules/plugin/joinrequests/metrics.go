package joinrequests

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of the processed counter.
const (
	outcomeApproved    = "approved"
	outcomeDeclined    = "declined"
	outcomeIgnored     = "ignored"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)

func newProcessedCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tgbridge",
		Subsystem: "joinrequests",
		Name:      "processed_total",
		Help:      "Chat join requests seen by the plugin, by outcome.",
	}, []string{"outcome"})
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}
