package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no engine or source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is the read side of an engine the exporter observes.
type MetricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// reading is everything one collection cycle observes, taken once.
type reading struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
	points   map[authcore.MetricID]internaldefs.HistogramPoint
}

// OTelExporter publishes engine metrics through observable instruments.
// Histograms are flattened into per-bucket gauges plus _count and _sum,
// since the metric API has no observable histogram.
type OTelExporter struct {
	source       MetricsSource
	meter        metric.Meter
	observables  []metric.Observable
	observers    []func(metric.Observer, *reading)
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that observe engine.
func NewOTelExporter(meter metric.Meter, engine *authcore.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any [MetricsSource].
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source, meter: meter}
	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := e.counter(def.Name, def.Help, func(r *reading) uint64 { return r.snapshot.Counters[id] }); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		if err := e.histogram(def); err != nil {
			return nil, err
		}
	}
	if err := e.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(r *reading) uint64 { return r.dropped }); err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.collect, e.observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) counter(name, help string, value func(*reading) uint64) error {
	ins, err := e.meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.observables = append(e.observables, ins)
	e.observers = append(e.observers, func(o metric.Observer, r *reading) {
		o.ObserveInt64(ins, int64(value(r)))
	})
	return nil
}

func (e *OTelExporter) gauge(name, help string, value func(internaldefs.HistogramPoint) uint64, id authcore.MetricID) error {
	ins, err := e.meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create histogram gauge %s: %w", name, err)
	}
	e.observables = append(e.observables, ins)
	e.observers = append(e.observers, func(o metric.Observer, r *reading) {
		o.ObserveInt64(ins, int64(value(r.points[id])))
	})
	return nil
}

func (e *OTelExporter) histogram(def internaldefs.HistogramDef) error {
	for i, b := range internaldefs.Bounds {
		i := i
		name := def.Name + "_bucket_le_" + b.Suffix
		if err := e.gauge(name, "Cumulative histogram bucket count.",
			func(p internaldefs.HistogramPoint) uint64 { return p.Cumulative[i] }, def.ID); err != nil {
			return err
		}
	}
	if err := e.gauge(def.Name+"_count", "Histogram total sample count.",
		func(p internaldefs.HistogramPoint) uint64 { return p.Count }, def.ID); err != nil {
		return err
	}

	sumName := def.Name + "_sum"
	sum, err := e.meter.Float64ObservableGauge(sumName,
		metric.WithDescription("Histogram total observed duration."), metric.WithUnit("s"))
	if err != nil {
		return fmt.Errorf("create histogram sum gauge %s: %w", sumName, err)
	}
	id := def.ID
	e.observables = append(e.observables, sum)
	e.observers = append(e.observers, func(o metric.Observer, r *reading) {
		o.ObserveFloat64(sum, r.points[id].SumSeconds)
	})
	return nil
}

func (e *OTelExporter) collect(_ context.Context, o metric.Observer) error {
	r := &reading{
		snapshot: e.source.MetricsSnapshot(),
		dropped:  e.source.AuditDropped(),
		points:   make(map[authcore.MetricID]internaldefs.HistogramPoint, len(internaldefs.HistogramDefs)),
	}
	for _, def := range internaldefs.HistogramDefs {
		point, _ := internaldefs.Histogram(r.snapshot, def.ID)
		r.points[def.ID] = point
	}
	for _, observe := range e.observers {
		observe(o, r)
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
