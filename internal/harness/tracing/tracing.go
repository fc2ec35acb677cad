// Package tracing sets up an OpenTelemetry tracer provider for the agent
// loop, exporting one span per scheduler iteration and per tool call via
// OTLP when OTEL_EXPORTER_OTLP_ENDPOINT is set (§11). Grounded on the
// teacher's internal/observability/tracing.go, trimmed to the spans this
// harness actually emits.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps the scheduler's span-emitting surface. Only the run verb
// attaches one; schedulers built by the batch runner emit no spans.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// Config controls tracer construction. Endpoint defaults to
// OTEL_EXPORTER_OTLP_ENDPOINT when empty; an empty endpoint after that
// disables export and yields a no-op tracer.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	EnableInsecure bool
}

// New builds a Tracer from Config, falling back to a no-op tracer (and a
// no-op shutdown) when no OTLP endpoint is configured or the exporter cannot
// be constructed, exactly as the teacher's NewTracer degrades. An endpoint
// that is configured but unreachable does not trigger the fallback.
func New(cfg Config) (*Tracer, func(context.Context) error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "agent-verify-harness"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if cfg.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.EnableInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return &Tracer{tracer: otel.Tracer(cfg.ServiceName)}, func(context.Context) error { return nil }
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{provider: provider, tracer: provider.Tracer(cfg.ServiceName)}, provider.Shutdown
}

// StartIteration opens a span covering one generate/dispatch/verify pass of
// the scheduler's loop (4.F).
func (t *Tracer) StartIteration(ctx context.Context, taskID string, iteration int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scheduler.iteration", trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("iteration", iteration),
		))
}

// StartToolCall opens a span covering a single tool dispatch (4.B).
func (t *Tracer) StartToolCall(ctx context.Context, taskID, toolName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tool."+toolName, trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("tool.name", toolName),
		))
}

// StartVerification opens a span covering one verifier invocation (4.D).
func (t *Tracer) StartVerification(ctx context.Context, taskID, method string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "verify."+method, trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("verification.method", method),
		))
}

// RecordError records err on span and marks it failed, if err is non-nil.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
