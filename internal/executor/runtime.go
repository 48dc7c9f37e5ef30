package executor

import (
	"context"
)

// Runtime defines the host integration surface for field resolution, batching,
// abstract type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - At each depth the Executor drains all synchronous fields first via
//     ResolveSync, then calls BatchResolveAsync ONCE with all async tasks
//     collected at that depth. The next depth does not begin until
//     BatchResolveAsync returns and those results are completed.
//   - Top-level mutation fields are executed one at a time: every sync and async
//     descendant of one mutation field completes before the next one starts.
//   - Errors returned from any method are converted into located GraphQL errors.
//     If the field's return type is Non-Null, the Executor propagates the null
//     up to the nearest nullable ancestor.
//   - Implementations must be safe for concurrent use by different operations
//     and must not mutate source or args values.
//
// Object/field identifiers
//   - objectType is the GraphQL type name (e.g. "User"); for root fields it is
//     the root type name (e.g. "Query").
//   - source is the parent object value (nil for root unless a root value was
//     supplied).
//   - args is the map of argument names to already-coerced Go values. Arguments
//     the document omitted and that have no default are absent from the map.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	//
	// Requirements:
	// - Return len(results) == len(tasks).
	// - results[i] corresponds to tasks[i].
	// - Return independent errors per element without failing the whole batch.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType determines the concrete object type name for a value of an
	// interface or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value (string, int, float64, bool). Enums serialize to their name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}
