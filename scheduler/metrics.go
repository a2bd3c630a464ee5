package scheduler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

type metrics struct {
	requests  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	queueWait prometheus.Histogram
}

// newMetrics builds the scheduler collectors and registers them when a
// registerer is given. Collectors already registered by another scheduler
// are shared.
func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hypersync",
			Subsystem: "scheduler",
			Name:      "requests_total",
			Help:      "Requests dispatched through the scheduler by operation and outcome.",
		}, []string{"operation", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hypersync",
			Subsystem: "scheduler",
			Name:      "in_flight",
			Help:      "Requests currently holding a scheduler slot.",
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hypersync",
			Subsystem: "scheduler",
			Name:      "queue_wait_seconds",
			Help:      "Time spent waiting for a scheduler slot.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if registerer == nil {
		return m
	}

	m.requests = register(registerer, m.requests)
	m.inFlight = register(registerer, m.inFlight)
	m.queueWait = register(registerer, m.queueWait)
	return m
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *metrics) observe(operation string, outcome string) {
	if operation == "" {
		operation = "request"
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}
