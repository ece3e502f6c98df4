package authcore

import (
	"testing"
	"time"
)

// loginPathMetrics are the counters a single MFA login touches.
var loginPathMetrics = [...]MetricID{
	MetricMFARequired,
	MetricLoginFailure,
	MetricMFAFailure,
	MetricLoginSuccess,
	MetricTokenVerifySuccess,
}

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricLoginSuccess)
			}
		})
	}
}

func BenchmarkMetricsIncLoginPathParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(loginPathMetrics[idx])
			idx = (idx + 1) % len(loginPathMetrics)
		}
	})
}

func BenchmarkMetricsObserveVerifyLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	samples := [...]time.Duration{80 * time.Microsecond, 3 * time.Millisecond, 40 * time.Millisecond}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Observe(MetricVerifyLatency, samples[idx])
			idx = (idx + 1) % len(samples)
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, id := range loginPathMetrics {
		m.Inc(id)
	}
	m.Observe(MetricVerifyLatency, time.Millisecond)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}
