package ports

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MakePrometheusHandler serves the given collectors along with the Go runtime metrics
func MakePrometheusHandler(cs ...prometheus.Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()

	cs = append(cs, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register prometheus collector: %w", err)
		}
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
