// Package resolve implements executor.Runtime on top of the resolver
// functions bound to schema fields.
package resolve

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/gqlengine/internal/executor"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// TypeNamer is implemented by values that know their concrete GraphQL
// object type. It is consulted when completing interface and union fields.
type TypeNamer interface {
	GraphQLTypeName() string
}

// Runtime dispatches field resolution to schema-bound resolvers, falling
// back to property lookup on the source value.
type Runtime struct {
	schema      *schema.Schema
	log         *zap.Logger
	concurrency int
}

var _ executor.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger for resolver diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// WithConcurrency caps the number of async resolvers running at once within
// one batch. Zero or negative means no limit.
func WithConcurrency(n int) Option {
	return func(r *Runtime) { r.concurrency = n }
}

// New returns a Runtime for sch.
func New(sch *schema.Schema, opts ...Option) *Runtime {
	r := &Runtime{schema: sch, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveSync runs the bound resolver of objectType.field, or the default
// resolver when none is bound. A null result is replaced by the field's
// default value when one is declared.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	def := r.schema.Field(objectType, field)
	if def == nil {
		return nil, fmt.Errorf("no field %s on type %s", field, objectType)
	}

	value, err := r.call(ctx, def, source, args)
	if err != nil {
		r.log.Debug("resolver failed",
			zap.String("object_type", objectType),
			zap.String("field", field),
			zap.Error(err),
		)
		return nil, err
	}
	if isNull(value) && def.Default != nil {
		value = def.Default()
	}
	return value, nil
}

func (r *Runtime) call(ctx context.Context, def *schema.Field, source any, args map[string]any) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value, err = nil, fmt.Errorf("resolver for %s panicked: %v", def.Name, p)
		}
	}()
	if def.Resolve != nil {
		return def.Resolve(ctx, source, args)
	}
	return DefaultResolver(ctx, source, def.Name, args)
}

// BatchResolveAsync resolves every task concurrently and returns results in
// task order. Each task fails independently.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = executor.AsyncResolveResult{Error: err}
				return nil
			}
			v, err := r.ResolveSync(gctx, task.ObjectType, task.Field, task.Source, task.Args)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	r.log.Debug("async batch resolved", zap.Int("tasks", len(tasks)))
	return results
}

// ResolveType names the concrete object type of value. Maps may carry a
// "__typename" key; other values implement TypeNamer or are structs whose
// Go type name equals a possible type.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	switch v := value.(type) {
	case TypeNamer:
		return v.GraphQLTypeName(), nil
	case map[string]any:
		if name, ok := v["__typename"].(string); ok {
			return name, nil
		}
	default:
		rv := reflect.Indirect(reflect.ValueOf(value))
		if rv.IsValid() {
			if name := rv.Type().Name(); name != "" && r.schema.IsPossibleType(abstractType, name) {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s from %T", abstractType, value)
}

// SerializeLeafValue converts value to the JSON form of the named scalar or
// enum type.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	t := r.schema.Types[typeName]
	if t == nil {
		return nil, fmt.Errorf("unknown leaf type %s", typeName)
	}
	if t.Serialize != nil {
		return t.Serialize(value)
	}
	return serializeLeaf(t, value)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
