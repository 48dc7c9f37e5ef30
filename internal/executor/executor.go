package executor

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/execctx"
	language "github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/reqid"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

type Path []PathElement

type PathElement any

// executionState holds the state during query execution
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	data           *Object
	asyncTaskGroup []asyncTask
	errors         []GraphQLError
	// prefixes of paths that have been nullified (tombstoned)
	nullifiedPrefix map[string]struct{}
	// whether the value at a response path may be null
	nullable map[string]bool
}

// asyncTask represents a pending async field resolution
type asyncTask struct {
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
}

type asyncPending struct{}

// Request is one GraphQL operation to execute from source text.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Context is exposed to resolvers through execctx.FromContext.
	Context execctx.Values
	// RootValue is the source value handed to root field resolvers.
	RootValue any
}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
	log     *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

func NewExecutor(runtime Runtime, schema *schema.Schema, opts ...Option) *Executor {
	e := &Executor{runtime: runtime, schema: schema, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// Execute parses and validates req.Query, then executes the selected
// operation. Syntax and validation errors are reported without running any
// resolver and leave Data nil.
func (e *Executor) Execute(ctx context.Context, req Request) *ExecutionResult {
	ctx, id := reqid.Ensure(ctx)
	ctx = execctx.NewContext(ctx, req.Context)
	start := time.Now()

	// The start event goes out once the operation is known, so subscribers
	// see its name and type; documents that fail to load still get one.
	opName, opType := req.OperationName, ""
	doc, failed := e.loadDocument(req.Query)
	if doc != nil {
		if op := getOperation(doc, req.OperationName); op != nil {
			opType = string(op.Operation)
			if op.Name != "" {
				opName = op.Name
			}
		}
	}
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: opName, OperationType: opType})

	result := failed
	if result == nil {
		result = e.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, req.RootValue)
	}

	finish := events.GraphQLFinish{
		Query:         req.Query,
		OperationName: opName,
		OperationType: opType,
		Duration:      time.Since(start),
	}
	for _, ge := range result.Errors {
		finish.Errors = append(finish.Errors, ge)
	}
	eventbus.Publish(ctx, finish)

	e.log.Debug("graphql request executed",
		zap.String("request_id", id),
		zap.String("operation", opName),
		zap.String("operation_type", opType),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", finish.Duration),
	)
	return result
}

// loadDocument parses and validates query. On failure it returns the error
// result instead of a document.
func (e *Executor) loadDocument(query string) (*language.QueryDocument, *ExecutionResult) {
	astSchema, err := e.schema.AST()
	if err != nil {
		return nil, errorResult(GraphQLError{Message: fmt.Sprintf("invalid schema: %v", err)})
	}
	doc, errs := language.LoadQuery(astSchema, query)
	if len(errs) > 0 {
		return nil, errorResult(fromErrorList(errs)...)
	}
	return doc, nil
}

// ExecuteRequest executes an already parsed document. The document is
// assumed to be valid against the executor's schema.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := selectOperation(document, operationName)
	if err != nil {
		return errorResult(GraphQLError{Message: err.Error()})
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return errorResult(GraphQLError{Message: err.Error(), Locations: locationsOf(operation.Position)})
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		return errorResult(GraphQLError{Message: "subscriptions are not supported"})
	default:
		return errorResult(GraphQLError{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)})
	}

	if rootType == nil {
		return errorResult(GraphQLError{Message: fmt.Sprintf("schema is not configured for %ss", operation.Operation)})
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		variableValues:  coercedVariableValues,
		context:         ctx,
		data:            newObject(),
		asyncTaskGroup:  []asyncTask{},
		errors:          []GraphQLError{},
		nullifiedPrefix: make(map[string]struct{}),
		nullable:        make(map[string]bool),
	}

	if operation.Operation == language.Mutation {
		executeFieldsSerially(state, rootType, operation.SelectionSet, initialValue)
	} else {
		// Root selection set: sync immediate expansion, async queued
		state.data = executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
		state.drainAsync()
	}

	return &ExecutionResult{Data: state.data, Errors: state.errors}
}

// executeFieldsSerially runs each top-level field to completion, including all
// of its async descendants, before starting the next one.
func executeFieldsSerially(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, rootValue any) {
	groupedFields := collectFields(state, objectType, selectionSet)
	for _, collectedField := range groupedFields.orderedFields() {
		fieldPath := Path{collectedField.ResponseName}
		fieldResult := executeFieldGroup(state, objectType, rootValue, collectedField.Fields, fieldPath)
		writeField(state.data, objectType, collectedField, fieldResult, Path{})
		state.drainAsync()
	}
}

// executeSelectionSet executes a selection set without flushing. It returns
// nil when a Non-Null field of the object completed to null.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) *Object {
	groupedFields := collectFields(state, objectType, selectionSet)
	resultMap := newObject()

	for _, collectedField := range groupedFields.orderedFields() {
		fieldPath := appendPath(path, collectedField.ResponseName)
		fieldResult := executeFieldGroup(state, objectType, objectValue, collectedField.Fields, fieldPath)
		if !writeField(resultMap, objectType, collectedField, fieldResult, path) {
			state.markNullifiedPrefix(path)
			return nil
		}
	}

	return resultMap
}

// writeField stores a completed field value in resultMap. It reports false
// when the value violates Non-Null below the root and the enclosing object
// must become null instead.
func writeField(resultMap *Object, objectType *schema.Type, collectedField collectedField, fieldResult any, parentPath Path) bool {
	responseName := collectedField.ResponseName
	fields := collectedField.Fields

	// Handle __typename special case
	if fields[0].Name == "__typename" {
		resultMap.Set(responseName, fieldResult)
		return true
	}

	fieldDef := objectType.Field(fields[0].Name)
	if fieldDef == nil {
		// Unknown field – error was already recorded in executeFieldGroup; do not include it
		return true
	}

	if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
		if len(parentPath) > 0 {
			return false
		}
		// Root level: keep going but write nil
		resultMap.Set(responseName, nil)
		return true
	}

	// For nullable fields, coerce typed-nil to interface-nil
	if isNullish(fieldResult) {
		resultMap.Set(responseName, nil)
	} else {
		resultMap.Set(responseName, fieldResult)
	}
	return true
}

func executeFieldGroup(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	// Handle __typename meta field
	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.Field(fieldName)
	if fieldDef == nil {
		state.addErrorAt(fmt.Sprintf("Cannot query field %q on type %q.", fieldName, objectType.Name), field.Position, path)
		return nil
	}
	state.recordNullability(path, fieldDef.Type)

	argumentValues, ok := coerceArgumentValues(state, fieldDef, field, path)
	if !ok {
		return nil
	}

	if !fieldDef.Async {
		resolvedValue, err := state.runtime.ResolveSync(state.context, objectType.Name, fieldName, objectValue, argumentValues)
		if err != nil {
			state.addResolverError(objectType.Name, fieldName, err, field.Position, path)
			return nil
		}
		return completeValue(state, fieldDef.Type, fields, resolvedValue, path)
	}

	state.asyncTaskGroup = append(state.asyncTaskGroup, asyncTask{
		Task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldName,
			Source:     objectValue,
			Args:       argumentValues,
		},
		ResponsePath: path,
		FieldType:    fieldDef.Type,
		Fields:       fields,
	})
	return asyncPending{}
}

// drainAsync runs the depth-wise batch loop until no async work remains.
func (state *executionState) drainAsync() {
	for len(state.asyncTaskGroup) > 0 {
		filtered, results := flushAsyncTasks(state)
		for i, at := range filtered {
			if i >= len(results) {
				completeAsyncField(state, at, AsyncResolveResult{Error: fmt.Errorf("runtime returned no result for %s.%s", at.Task.ObjectType, at.Task.Field)})
				continue
			}
			completeAsyncField(state, at, results[i])
		}
	}
}

// flushAsyncTasks flushes tasks and returns results (filtered by tombstones)
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	filtered := make([]asyncTask, 0, len(state.asyncTaskGroup))
	for _, at := range state.asyncTaskGroup {
		if state.hasNullifiedPrefix(at.ResponsePath) {
			continue
		}
		filtered = append(filtered, at)
	}

	// Clear group before executing
	state.asyncTaskGroup = nil
	if len(filtered) == 0 {
		return nil, nil
	}

	tasks := make([]AsyncResolveTask, len(filtered))
	for i, at := range filtered {
		tasks[i] = at.Task
	}
	return filtered, state.runtime.BatchResolveAsync(state.context, tasks)
}

// completeAsyncField completes a single async result, with non-null propagation and pruning
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult) {
	path := at.ResponsePath
	// If this path is already nullified by an ancestor, ignore
	if state.hasNullifiedPrefix(path) {
		return
	}

	var completed any
	if res.Error != nil {
		state.addResolverError(at.Task.ObjectType, at.Task.Field, res.Error, at.Fields[0].Position, path)
	} else {
		completed = completeValue(state, at.FieldType, at.Fields, res.Value, path)
	}

	if schema.IsNonNull(at.FieldType) && isNullish(completed) {
		if res.Error == nil && !state.hasErrorAtPath(path) {
			state.addErrorAt(fmt.Sprintf("Cannot return null for non-nullable field %s.%s.", at.Task.ObjectType, at.Task.Field), at.Fields[0].Position, path)
		}
		target := state.nearestNullableAncestor(path)
		setValueAtPath(state.data, target, nil)
		state.markNullifiedPrefix(target)
		return
	}

	// Normal write; coerce typed-nil to interface nil
	if isNullish(completed) {
		setValueAtPath(state.data, path, nil)
	} else {
		setValueAtPath(state.data, path, completed)
	}
}

// completeValue completes a value
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addErrorAt(fmt.Sprintf("Cannot return null for non-nullable field %s.", pathToString(path)), fields[0].Position, path)
			}
			return nil
		}
		inner := schema.Unwrap(fieldType)
		completed := completeValue(state, inner, fields, result, path)
		if isNullish(completed) {
			// Error already recorded at original path; propagate only
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}
	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addErrorAt(fmt.Sprintf("Unknown type: %s", namedType), fields[0].Position, path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.addErrorAt(err.Error(), fields[0].Position, path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, namedType, fields, result, path)
	default:
		state.addErrorAt(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), fields[0].Position, path)
		return nil
	}
}

// completeListValue completes a list value
func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addErrorAt(fmt.Sprintf("Expected list value, got %T", result), fields[0].Position, path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		state.recordNullability(p, inner)
		v := completeValue(state, inner, fields, item, p)
		if schema.IsNonNull(inner) && isNullish(v) {
			// Propagate null to the list field; error already recorded by inner completion
			state.markNullifiedPrefix(path)
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	obj := executeSelectionSet(state, objectType, sub, result, path)
	if obj == nil {
		return nil
	}
	return obj
}

func completeAbstractValue(state *executionState, abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractTypeName, result)
	if err != nil {
		state.addErrorAt(err.Error(), fields[0].Position, path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject || !state.schema.IsPossibleType(abstractTypeName, typeName) {
		state.addErrorAt(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), fields[0].Position, path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		if i > 0 {
			result += "."
		}
		switch v := elem.(type) {
		case string:
			result += v
		case int:
			result += fmt.Sprintf("%d", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// Prefix tombstone helpers
func (s *executionState) markNullifiedPrefix(p Path) {
	key := pathToString(p)
	if key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	// Build prefixes progressively
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		key := pathToString(cur)
		if _, ok := s.nullifiedPrefix[key]; ok {
			return true
		}
	}
	return false
}

func (s *executionState) recordNullability(p Path, t *schema.TypeRef) {
	s.nullable[pathToString(p)] = !schema.IsNonNull(t)
}

// nearestNullableAncestor returns the closest strict ancestor of p whose value
// may be null. Top-level fields absorb the null when no such ancestor exists.
func (s *executionState) nearestNullableAncestor(p Path) Path {
	for i := len(p) - 1; i >= 1; i-- {
		if s.nullable[pathToString(p[:i])] {
			return p[:i]
		}
	}
	if len(p) == 0 {
		return p
	}
	return p[:1]
}

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	op, _ := selectOperation(document, operationName)
	return op
}

func selectOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, fmt.Errorf("document does not contain an operation")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, fmt.Errorf("must provide operation name if query contains multiple operations")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation named %q", operationName)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

func locationsOf(pos *language.Position) []Location {
	if pos == nil {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

// Helper function to add an error to the execution state
func (state *executionState) addError(message string, path Path) {
	state.errors = append(state.errors, GraphQLError{Message: message, Path: path})
}

func (state *executionState) addErrorAt(message string, pos *language.Position, path Path) {
	state.errors = append(state.errors, GraphQLError{Message: message, Locations: locationsOf(pos), Path: path})
}

// addResolverError records a resolver failure and publishes it on the event bus.
func (state *executionState) addResolverError(objectType, field string, err error, pos *language.Position, path Path) {
	state.addErrorAt(err.Error(), pos, path)
	eventbus.Publish(state.context, events.ResolverError{
		ObjectType: objectType,
		Field:      field,
		Path:       pathToString(path),
		Err:        err,
	})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range state.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// setValueAtPath overwrites the value at path. Missing intermediate objects
// mean the subtree was already nulled, so nothing is written.
func setValueAtPath(root *Object, path Path, value any) {
	if len(path) == 0 || root == nil {
		return
	}
	var current any = root
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(*Object)
			if !ok || m == nil {
				return
			}
			next, exists := m.Get(e)
			if !exists {
				return
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e < 0 || e >= len(slice) {
				return
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(*Object); ok && m != nil {
			m.Set(fe, value)
		}
	case int:
		if slice, ok := current.([]any); ok && fe >= 0 && fe < len(slice) {
			slice[fe] = value
		}
	}
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
