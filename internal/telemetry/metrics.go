package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/referral-labels"

// Metrics holds the pipeline's counters. A nil *Metrics records nothing.
type Metrics struct {
	labelsBuilt       metric.Int64Counter
	parseErrors       metric.Int64Counter
	exports           metric.Int64Counter
	exportedLabels    metric.Int64Counter
	correctionRuns    metric.Int64Counter
	correctionApplied metric.Int64Counter
}

// New registers the counters on meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.labelsBuilt, "labels.built_total", "Label rows produced by the record builder", "{label}"},
		{&m.parseErrors, "labels.parse_errors_total", "Records whose address yielded no street, city or zip", "{record}"},
		{&m.exports, "labels.exports_total", "Export files written", "{file}"},
		{&m.exportedLabels, "labels.exported_total", "Labels written to export files", "{label}"},
		{&m.correctionRuns, "labels.correction_runs_total", "Address correction runs by outcome", "{run}"},
		{&m.correctionApplied, "labels.corrections_applied_total", "Office addresses updated by correction runs", "{office}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns metrics on the global otel meter provider, falling back to a
// no-op meter if registration fails.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := New(otel.Meter(instrumentationName))
		if err != nil {
			m, _ = New(noop.NewMeterProvider().Meter(instrumentationName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func (m *Metrics) LabelsBuilt(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.labelsBuilt.Add(ctx, int64(n))
}

func (m *Metrics) ParseErrors(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.parseErrors.Add(ctx, int64(n))
}

// Exported records one written file of the given format ("xlsx", "pdf").
func (m *Metrics) Exported(ctx context.Context, format string, labels int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("format", format))
	m.exports.Add(ctx, 1, attrs)
	m.exportedLabels.Add(ctx, int64(labels), attrs)
}

// CorrectionRun records the terminal outcome of a correction run.
func (m *Metrics) CorrectionRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.correctionRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) CorrectionsApplied(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.correctionApplied.Add(ctx, int64(n))
}
