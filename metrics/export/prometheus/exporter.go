package prometheus

import (
	"net/http"

	"github.com/MrEthical07/authcore"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter serves authcore metrics from a private registry that
// holds a single [Collector].
type PrometheusExporter struct {
	registry *promclient.Registry
	handler  http.Handler
}

// NewPrometheusExporter creates an exporter that reads from the given [authcore.Engine].
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates an exporter from a custom [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	registry := promclient.NewRegistry()
	registry.MustRegister(NewCollector(source))
	return &PrometheusExporter{
		registry: registry,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}),
	}
}

// Handler returns an http.Handler that serves the exposition format
// negotiated with the scraper.
func (p *PrometheusExporter) Handler() http.Handler {
	return p.handler
}

// Registry returns the exporter's registry, for adding process or Go
// runtime collectors next to the engine metrics.
func (p *PrometheusExporter) Registry() *promclient.Registry {
	return p.registry
}
