// Package observability instruments DeepThink/UltraThink runs and
// their staged LLM calls with OpenTelemetry spans plus OTel and
// Prometheus counters/histograms side by side, the same dual-registered
// shape llm/health_check_metrics.go uses for provider health checks.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/agentflow/reasoning"

var (
	reasoningRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoning_engine_runs_total",
			Help: "Total number of DeepThink/UltraThink runs.",
		},
		[]string{"mode"},
	)
	reasoningRunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoning_engine_duration_seconds",
			Help:    "Full engine run duration in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)
	reasoningRunErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoning_engine_errors_total",
			Help: "Total number of engine runs that returned an error.",
		},
		[]string{"mode"},
	)
	reasoningCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoning_engine_calls_total",
			Help: "Total number of staged LLM calls issued by an engine run.",
		},
		[]string{"stage"},
	)
	reasoningCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoning_engine_call_duration_seconds",
			Help:    "Duration of a single staged LLM call in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		reasoningRunsTotal,
		reasoningRunDurationSeconds,
		reasoningRunErrorsTotal,
		reasoningCallsTotal,
		reasoningCallDurationSeconds,
	)
}

// Metrics collects engine-run and staged-call telemetry. A nil
// *Metrics disables instrumentation entirely; every engine collaborator
// that takes one treats nil as "off", matching the Meter/Fingerprint/
// Limiter collaborator convention elsewhere in reasoning/engine.
type Metrics struct {
	tracer trace.Tracer

	runTotal    metric.Int64Counter
	runDuration metric.Float64Histogram
	runErrors   metric.Int64Counter

	callTotal    metric.Int64Counter
	callDuration metric.Float64Histogram
}

// NewMetrics registers the reasoning instrumentation against the
// process-global OTel providers.
func NewMetrics() (*Metrics, error) {
	tracer := otel.Tracer(instrumentationName)
	meter := otel.Meter(instrumentationName)

	m := &Metrics{tracer: tracer}
	var err error

	m.runTotal, err = meter.Int64Counter("reasoning.engine.runs_total",
		metric.WithDescription("Total number of DeepThink/UltraThink runs"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	m.runDuration, err = meter.Float64Histogram("reasoning.engine.duration_seconds",
		metric.WithDescription("Full engine run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600))
	if err != nil {
		return nil, err
	}

	m.runErrors, err = meter.Int64Counter("reasoning.engine.errors_total",
		metric.WithDescription("Total number of engine runs that returned an error"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, err
	}

	m.callTotal, err = meter.Int64Counter("reasoning.engine.calls_total",
		metric.WithDescription("Total number of staged LLM calls issued by an engine run"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}

	m.callDuration, err = meter.Float64Histogram("reasoning.engine.call_duration_seconds",
		metric.WithDescription("Duration of a single staged LLM call in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// StartRun opens a span covering a whole DeepThink/UltraThink run.
func (m *Metrics) StartRun(ctx context.Context, mode, model string) (context.Context, trace.Span) {
	if m == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, "reasoning."+mode,
		trace.WithAttributes(
			attribute.String("reasoning.mode", mode),
			attribute.String("reasoning.model", model)))
}

// EndRun closes the run span and records the run counter/histogram.
func (m *Metrics) EndRun(ctx context.Context, span trace.Span, mode string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String("mode", mode)}
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	reasoningRunsTotal.WithLabelValues(mode).Inc()
	reasoningRunDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		m.runErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		reasoningRunErrorsTotal.WithLabelValues(mode).Inc()
		span.SetAttributes(attribute.String("error.message", err.Error()))
	}
}

// StartCall opens a span covering one staged LLM call within a run.
func (m *Metrics) StartCall(ctx context.Context, stage, provider, model string) (context.Context, trace.Span) {
	if m == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, "reasoning.call."+stage,
		trace.WithAttributes(
			attribute.String("reasoning.stage", stage),
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model)))
}

// EndCall closes the call span and records the call counter/histogram.
func (m *Metrics) EndCall(ctx context.Context, span trace.Span, stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String("stage", stage)}
	m.callTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	reasoningCallsTotal.WithLabelValues(stage).Inc()
	reasoningCallDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		span.SetAttributes(attribute.String("error.message", err.Error()))
	}
}
