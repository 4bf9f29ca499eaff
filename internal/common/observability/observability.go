// internal/common/observability/observability.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Observability bundles the otel meter and tracer providers used by the
// interpreter pipeline.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         oteltrace.Tracer

	messageCounter  otelmetric.Int64Counter
	messageDuration otelmetric.Float64Histogram
}

// New initializes metrics via the prometheus exporter and, when
// jaegerEndpoint is non-empty, tracing via the jaeger collector exporter.
func New(serviceName, jaegerEndpoint string) *Observability {
	o := &Observability{}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
	} else {
		provider := metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(provider)
		meter := provider.Meter(serviceName)

		o.meterProvider = provider
		o.messageCounter, _ = meter.Int64Counter(
			"messages.interpreted",
			otelmetric.WithDescription("Number of messages interpreted"),
		)
		o.messageDuration, _ = meter.Float64Histogram(
			"messages.duration",
			otelmetric.WithDescription("Message interpretation duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if jaegerEndpoint != "" {
		jexp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			log.Printf("Failed to create Jaeger exporter: %v", err)
		} else {
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(jexp))
			otel.SetTracerProvider(tp)
			o.tracerProvider = tp
		}
	}
	o.tracer = otel.Tracer(serviceName)

	return o
}

// StartSpan opens a pipeline-stage span; the returned end func must be called.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := o.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

// RecordMessage records one interpreted message with its resolved intent.
func (o *Observability) RecordMessage(ctx context.Context, intent string, duration time.Duration) {
	if o.messageCounter != nil {
		o.messageCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("intent", intent),
		))
	}
	if o.messageDuration != nil {
		o.messageDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("intent", intent),
		))
	}
}

// Shutdown flushes both providers.
func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
