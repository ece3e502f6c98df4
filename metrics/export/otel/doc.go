// Package otel binds authcore engine metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and flattens the latency histogram into per-bucket gauges plus _count and
// a Float64ObservableGauge _sum in seconds. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection cycle. The caller owns
// the MeterProvider.
package otel
