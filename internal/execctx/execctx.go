// Package execctx carries the request-scoped key/value bag that a caller
// hands to one execution. Resolvers read it from their context.Context.
package execctx

import (
	"context"
	"reflect"
	"strings"
)

// Values is the bag of ancillary request data, such as authentication flags.
type Values map[string]any

type key struct{}

// NewContext returns a copy of parent carrying vals. A nil bag is stored as
// an empty one so lookups never need a nil check.
func NewContext(parent context.Context, vals Values) context.Context {
	if vals == nil {
		vals = Values{}
	}
	return context.WithValue(parent, key{}, vals)
}

// FromContext returns the bag stored in ctx, or an empty bag.
func FromContext(ctx context.Context) Values {
	if v, ok := ctx.Value(key{}).(Values); ok {
		return v
	}
	return Values{}
}

// Get returns the value stored under k.
func (v Values) Get(k string) (any, bool) {
	val, ok := v[k]
	return val, ok
}

// Bool reports the boolean stored under k. Missing and non-boolean values
// are false.
func (v Values) Bool(k string) bool {
	b, _ := v[k].(bool)
	return b
}

// Truthy reports whether the value under k counts as set: true, a non-zero
// number, a string other than "" and "false", a non-empty slice or map, or
// any other non-zero value.
func (v Values) Truthy(k string) bool {
	switch x := v[k].(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && !strings.EqualFold(x, "false")
	}
	rv := reflect.ValueOf(v[k])
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}

// String returns the string stored under k, or "".
func (v Values) String(k string) string {
	s, _ := v[k].(string)
	return s
}
