package instrument

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prismafmt"

// Metrics holds the Prometheus collectors shared by every instrumented engine
// registered with the same registerer.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	payload  *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "calls_total",
		Help:      "Engine calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "call_duration_seconds",
		Help:      "Engine call latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"operation"})
	payload := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "payload_bytes",
		Help:      "Text size crossing the engine boundary.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"operation", "direction"})

	var err error
	if calls, err = register(registerer, calls); err != nil {
		return nil, err
	}
	if duration, err = register(registerer, duration); err != nil {
		return nil, err
	}
	if payload, err = register(registerer, payload); err != nil {
		return nil, err
	}
	return &Metrics{calls: calls, duration: duration, payload: payload}, nil
}

// register returns the already registered collector when an equal one exists.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	if registerer == nil {
		return collector, nil
	}
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}
