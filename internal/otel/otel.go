package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	config "github.com/hanpama/gqlengine/internal/config"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

const tracerName = "gqlengine"

// Setup configures an OTLP/gRPC exporter and traces operations published on
// b. If cfg.Endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, cfg config.Tracing, b *eventbus.Bus) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(b, tp.Tracer(tracerName))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Register opens a span per GraphQL operation, keyed by request ID, and
// records resolver failures on it.
func Register(b *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(b)
}

type subscriber struct {
	tracer   trace.Tracer
	gqlSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register(b *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.SubscribeTo(b, func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
				attribute.String("request.id", rid),
			)
			s.gqlSpans.Store(rid, span)
		}),
		eventbus.SubscribeTo(b, func(ctx context.Context, e events.ResolverError) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.gqlSpans.Load(rid)
			if !ok {
				return
			}
			v.(trace.Span).RecordError(e.Err, trace.WithAttributes(
				attribute.String("graphql.field.path", e.Path),
				attribute.String("graphql.field.parent", e.ObjectType),
			))
		}),
		eventbus.SubscribeTo(b, func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.gqlSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
