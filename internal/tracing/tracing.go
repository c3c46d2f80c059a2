// Package tracing owns the process-wide OpenTelemetry provider and the span
// attributes shared by the indexer and the provenance service.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	KeyProductID = attribute.Key("oilube.product_id")
	KeyRole      = attribute.Key("oilube.role")
	KeySource    = attribute.Key("oilube.view_source")
	KeyFromBlock = attribute.Key("oilube.from_block")
	KeyToBlock   = attribute.Key("oilube.to_block")
)

type Config struct {
	ServiceName string
	// Endpoint is the OTLP/gRPC collector address. Empty installs a no-op
	// provider.
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// Shutdown flushes pending spans.
type Shutdown func(context.Context) error

func Init(ctx context.Context, cfg Config) (Shutdown, error) {
	if cfg.Endpoint == "" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter for %s: %w", cfg.Endpoint, err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "oilube"
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(name)))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// sampler honours a parent's decision and otherwise samples ratio of root
// spans. A ratio outside (0,1) samples everything.
func sampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	if ratio > 0 && ratio < 1 {
		root = sdktrace.TraceIDRatioBased(ratio)
	}
	return sdktrace.ParentBased(root)
}

func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// BlockRange tags a span with the inclusive block window it covers.
func BlockRange(from, to int64) []attribute.KeyValue {
	return []attribute.KeyValue{KeyFromBlock.Int64(from), KeyToBlock.Int64(to)}
}

// RecordError marks span as failed when err is non-nil and returns err.
func RecordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
