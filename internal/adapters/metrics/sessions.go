package metrics

import (
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// RegisterSessionGauge exports the number of live storefront sessions,
// read from count at scrape time.
func RegisterSessionGauge(namespace string, reg promclient.Registerer, count func() int) error {
	if namespace == "" {
		namespace = "tamsal"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	gauge := promclient.NewGaugeFunc(promclient.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Storefront sessions currently held in memory.",
	}, func() float64 { return float64(count()) })
	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("register session gauge: %w", err)
	}
	return nil
}
