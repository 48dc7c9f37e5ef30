package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	config "github.com/hanpama/gqlengine/internal/config"
	demo "github.com/hanpama/gqlengine/internal/demo"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Tracing{}, eventbus.New())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestRegister_OperationSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	b := eventbus.New()
	eventbus.Use(b)
	t.Cleanup(func() { eventbus.Use(nil) })

	unsubscribe := Register(b, tp.Tracer("test"))
	defer unsubscribe()

	ctx, rid := reqid.NewContext(context.Background())
	authErr := errors.New("Not Authenticated")
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: "createPost", OperationType: "mutation"})
	eventbus.Publish(ctx, events.ResolverError{ObjectType: "Mutation", Field: "createPost", Path: "createPost", Err: authErr})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "createPost", OperationType: "mutation", Errors: []error{authErr}})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	require.Equal(t, "graphql.operation", span.Name())
	require.Contains(t, span.Attributes(), attribute.String("graphql.operation.type", "mutation"))
	require.Contains(t, span.Attributes(), attribute.String("request.id", rid))
	require.Contains(t, span.Attributes(), attribute.Int("graphql.error_count", 1))
	require.Equal(t, codes.Error, span.Status().Code)
	require.Len(t, span.Events(), 1)
	require.Equal(t, "exception", span.Events()[0].Name)
}

func TestRegister_FinishWithoutStart(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	b := eventbus.New()
	eventbus.Use(b)
	t.Cleanup(func() { eventbus.Use(nil) })
	defer Register(b, tp.Tracer("test"))()

	eventbus.Publish(context.Background(), events.GraphQLFinish{})
	require.Empty(t, rec.Ended())
}

func TestRegister_ExecutedOperation(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	b := eventbus.New()
	eventbus.Use(b)
	t.Cleanup(func() { eventbus.Use(nil) })
	defer Register(b, tp.Tracer("test"))()

	exec, err := demo.NewExecutor()
	require.NoError(t, err)
	res := exec.Execute(context.Background(), demo.Operations[0].Request())
	require.Empty(t, res.Errors)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Contains(t, spans[0].Attributes(), attribute.String("graphql.operation.name", "getUsersQuery"))
	require.Contains(t, spans[0].Attributes(), attribute.String("graphql.operation.type", "query"))
	require.Contains(t, spans[0].Attributes(), attribute.Int("graphql.error_count", 0))
}
