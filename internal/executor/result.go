package executor

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	language "github.com/hanpama/gqlengine/internal/language"
)

// Object is a response object. Keys keep the order in which fields were
// selected and marshal to JSON in that order.
type Object = orderedmap.OrderedMap[string, any]

func newObject() *Object { return orderedmap.New[string, any]() }

// Location is a line/column position in the request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL query.
// Data is nil when the request failed before execution started.
type ExecutionResult struct {
	Data   *Object        `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// ErrorMessages returns the message of every error in order.
func (r *ExecutionResult) ErrorMessages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Lookup walks the data tree along path, where string elements select object
// keys and int elements select list indexes.
func (r *ExecutionResult) Lookup(path ...PathElement) (any, bool) {
	if r.Data == nil {
		return nil, false
	}
	var current any = r.Data
	for _, elem := range path {
		switch e := elem.(type) {
		case string:
			obj, ok := current.(*Object)
			if !ok || obj == nil {
				return nil, false
			}
			v, ok := obj.Get(e)
			if !ok {
				return nil, false
			}
			current = v
		case int:
			list, ok := current.([]any)
			if !ok || e < 0 || e >= len(list) {
				return nil, false
			}
			current = list[e]
		default:
			return nil, false
		}
	}
	return current, true
}

// errorResult builds a result for failures that prevent execution.
func errorResult(errs ...GraphQLError) *ExecutionResult {
	return &ExecutionResult{Errors: errs}
}

func fromErrorList(list language.ErrorList) []GraphQLError {
	out := make([]GraphQLError, 0, len(list))
	for _, e := range list {
		ge := GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		for _, p := range e.Path {
			switch v := p.(type) {
			case interface{ String() string }:
				ge.Path = append(ge.Path, v.String())
			default:
				ge.Path = append(ge.Path, v)
			}
		}
		out = append(out, ge)
	}
	return out
}
