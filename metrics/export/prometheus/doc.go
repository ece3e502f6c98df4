// Package prometheus exposes authcore engine metrics to Prometheus through
// client_golang.
//
// [NewCollector] adapts an engine to any registry, including one a service
// already runs. [NewPrometheusExporter] wraps the same collector in a
// private registry and a promhttp handler that can be mounted on any mux.
//
// Counters are named authcore_*_total and the single histogram is
// authcore_verify_latency_seconds. Nothing is registered in the global
// registry.
package prometheus
