package instrument

import (
	"context"
	"time"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/debugctx"
	"github.com/crmarques/prismafmt/faults"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/crmarques/prismafmt/internal/instrument"

const (
	outcomeOK = "ok"

	directionIn  = "in"
	directionOut = "out"
)

var (
	_ bridge.Engine    = (*Engine)(nil)
	_ bridge.Versioner = (*Engine)(nil)
	_ bridge.Closer    = (*Engine)(nil)
)

type Options struct {
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Engine decorates an engine with metrics, spans and call-id logging. Inputs
// and outputs pass through unchanged.
type Engine struct {
	next    bridge.Engine
	metrics *Metrics
	tracer  trace.Tracer

	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

func Wrap(next bridge.Engine, options Options) (*Engine, error) {
	if next == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "engine is required", nil)
	}

	metrics := options.Metrics
	if metrics == nil {
		var err error
		if metrics, err = NewMetrics(nil); err != nil {
			return nil, err
		}
	}
	tracerProvider := options.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	meterProvider := options.MeterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}

	meter := meterProvider.Meter(instrumentationName)
	calls, err := meter.Int64Counter(
		"prismafmt.bridge.calls",
		metric.WithDescription("Engine calls by operation and outcome."),
	)
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to create call counter", err)
	}
	duration, err := meter.Float64Histogram(
		"prismafmt.bridge.call.duration",
		metric.WithDescription("Engine call latency."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to create call histogram", err)
	}

	return &Engine{
		next:     next,
		metrics:  metrics,
		tracer:   tracerProvider.Tracer(instrumentationName),
		calls:    calls,
		duration: duration,
	}, nil
}

func (e *Engine) Unwrap() bridge.Engine {
	return e.next
}

func (e *Engine) Format(ctx context.Context, input string) (string, error) {
	return e.observe(ctx, bridge.OperationFormat, input, func(ctx context.Context) (string, error) {
		return e.next.Format(ctx, input)
	})
}

func (e *Engine) Lint(ctx context.Context, input string) (string, error) {
	return e.observe(ctx, bridge.OperationLint, input, func(ctx context.Context) (string, error) {
		return e.next.Lint(ctx, input)
	})
}

func (e *Engine) NativeTypes(ctx context.Context, input string) (string, error) {
	return e.observe(ctx, bridge.OperationNativeTypes, input, func(ctx context.Context) (string, error) {
		return e.next.NativeTypes(ctx, input)
	})
}

func (e *Engine) ReferentialActions(ctx context.Context, input string) (string, error) {
	return e.observe(ctx, bridge.OperationReferentialActions, input, func(ctx context.Context) (string, error) {
		return e.next.ReferentialActions(ctx, input)
	})
}

func (e *Engine) PreviewFeatures(ctx context.Context) (string, error) {
	return e.observe(ctx, bridge.OperationPreviewFeatures, "", func(ctx context.Context) (string, error) {
		return e.next.PreviewFeatures(ctx)
	})
}

// Version keeps the wrapped engine's capability: an engine without Version
// still yields UnsupportedError.
func (e *Engine) Version(ctx context.Context, input string) (string, error) {
	return e.observe(ctx, bridge.OperationVersion, input, func(ctx context.Context) (string, error) {
		versioner, ok := e.next.(bridge.Versioner)
		if !ok {
			return "", bridge.Unsupported(bridge.OperationVersion, nil)
		}
		return versioner.Version(ctx, input)
	})
}

func (e *Engine) Close(ctx context.Context) error {
	closer, ok := e.next.(bridge.Closer)
	if !ok {
		return nil
	}
	return closer.Close(ctx)
}

func (e *Engine) observe(
	ctx context.Context,
	operation bridge.Operation,
	input string,
	call func(ctx context.Context) (string, error),
) (string, error) {
	callID := uuid.NewString()
	name := string(operation)

	ctx, span := e.tracer.Start(ctx, "bridge."+name, trace.WithAttributes(
		attribute.String("prismafmt.operation", name),
		attribute.String("prismafmt.call_id", callID),
		attribute.Int("prismafmt.input_bytes", len(input)),
	))
	defer span.End()

	started := time.Now()
	output, err := call(ctx)
	elapsed := time.Since(started)

	outcome := outcomeOK
	if err != nil {
		outcome = string(faults.CategoryOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("prismafmt.output_bytes", len(output)))
	}

	e.metrics.calls.WithLabelValues(name, outcome).Inc()
	e.metrics.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	if operation.TakesInput() {
		e.metrics.payload.WithLabelValues(name, directionIn).Observe(float64(len(input)))
	}
	if err == nil {
		e.metrics.payload.WithLabelValues(name, directionOut).Observe(float64(len(output)))
	}

	attributes := metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("outcome", outcome),
	)
	e.calls.Add(ctx, 1, attributes)
	e.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("operation", name)))

	debugctx.Logger(ctx).V(1).Info(
		"engine call",
		"call_id", callID,
		"operation", name,
		"outcome", outcome,
		"duration", elapsed,
	)
	return output, err
}
