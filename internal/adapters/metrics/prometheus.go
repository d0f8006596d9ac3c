// Package metrics exports remote call metrics to Prometheus.
// Clean Architecture: Adapter implementing ports.CallObserver.
package metrics

import (
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/tamsal/storefront/internal/domain/ports"
)

// PrometheusObserver counts generative calls by operation and outcome.
type PrometheusObserver struct {
	calls    *promclient.CounterVec
	duration *promclient.HistogramVec
}

// NewPrometheusObserver registers the call metrics on reg (DefaultRegisterer when nil).
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "tamsal"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		calls: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "genai_calls_total",
			Help:      "Generative model calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "genai_call_duration_seconds",
			Help:      "Latency of generative model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"operation"}),
	}

	if err := reg.Register(observer.calls); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register call counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register call counter: %w", err)
		}
		observer.calls = existing
	}
	if err := reg.Register(observer.duration); err != nil {
		are, ok := err.(promclient.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register call histogram: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register call histogram: %w", err)
		}
		observer.duration = existing
	}
	return observer, nil
}

// ObserveCall records one finished call.
func (o *PrometheusObserver) ObserveCall(operation, outcome string, elapsed time.Duration) {
	if o == nil {
		return
	}
	o.calls.WithLabelValues(operation, outcome).Inc()
	o.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

var _ ports.CallObserver = (*PrometheusObserver)(nil)
