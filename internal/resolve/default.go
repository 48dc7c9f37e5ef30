package resolve

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

var (
	contextGoType = reflect.TypeOf(new(context.Context)).Elem()
	argsGoType    = reflect.TypeOf(new(map[string]any)).Elem()
	errorGoType   = reflect.TypeOf(new(error)).Elem()
)

// DefaultResolver reads field from source. It looks up, in order: a map key
// equal to the field name or its snake_case form, an exported struct field
// tagged `graphql:"<field>"` or named after the field, and an exported method
// named after the field. Go names are the field name with its first letter
// upper-cased and common initialisms (ID, URL, ...) capitalised.
//
// Methods may take an optional context.Context followed by an optional
// map[string]any of arguments, and return a value optionally followed by an
// error.
//
// A missing source or property resolves to nil.
func DefaultResolver(ctx context.Context, source any, field string, args map[string]any) (any, error) {
	if source == nil {
		return nil, nil
	}
	switch m := source.(type) {
	case map[string]any:
		if v, ok := m[field]; ok {
			return v, nil
		}
		return m[snakeCase(field)], nil
	}

	v := reflect.ValueOf(source)
	if method := findFieldMethod(v, field); method.IsValid() {
		return callFieldMethod(ctx, method, args)
	}

	v = unwrapPointer(v)
	switch v.Kind() {
	case reflect.Struct:
		if fv, ok := structField(v, field); ok {
			return fv.Interface(), nil
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String {
			for _, key := range []string{field, snakeCase(field)} {
				if mv := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())); mv.IsValid() {
					return mv.Interface(), nil
				}
			}
		}
	}
	return nil, nil
}

func unwrapPointer(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, field string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if name, _, _ := strings.Cut(sf.Tag.Get("graphql"), ","); name == field {
			return v.Field(i), true
		}
	}
	for _, goName := range goFieldNames(field) {
		if sf, ok := t.FieldByName(goName); ok && sf.IsExported() {
			return v.FieldByIndex(sf.Index), true
		}
	}
	return reflect.Value{}, false
}

func findFieldMethod(v reflect.Value, field string) reflect.Value {
	if !v.IsValid() {
		return reflect.Value{}
	}
	for _, goName := range goFieldNames(field) {
		if m := v.MethodByName(goName); m.IsValid() {
			return m
		}
	}
	return reflect.Value{}
}

func callFieldMethod(ctx context.Context, method reflect.Value, args map[string]any) (any, error) {
	mtype := method.Type()
	numIn := mtype.NumIn()
	var callArgs []reflect.Value
	if len(callArgs) < numIn && mtype.In(len(callArgs)) == contextGoType {
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}
	if len(callArgs) < numIn && mtype.In(len(callArgs)) == argsGoType {
		if args == nil {
			args = map[string]any{}
		}
		callArgs = append(callArgs, reflect.ValueOf(args))
	}
	if len(callArgs) != numIn {
		return nil, errors.New("field method: wrong parameter signature")
	}

	switch mtype.NumOut() {
	case 1:
		if mtype.Out(0) == errorGoType {
			return nil, errors.New("field method: return type must not be error")
		}
		return method.Call(callArgs)[0].Interface(), nil
	case 2:
		if got := mtype.Out(1); got != errorGoType {
			return nil, fmt.Errorf("field method: second return type must be error (found %v)", got)
		}
		out := method.Call(callArgs)
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	default:
		return nil, errors.New("field method: wrong return signature")
	}
}

var initialisms = map[string]bool{
	"Api": true, "Html": true, "Http": true, "Id": true, "Json": true,
	"Uri": true, "Url": true, "Uuid": true,
}

// goFieldNames returns the Go identifiers a GraphQL field name may map to,
// most specific first.
func goFieldNames(name string) []string {
	if name == "" {
		return nil
	}
	plain := strings.ToUpper(name[:1]) + name[1:]

	words := splitCamel(plain)
	for i, w := range words {
		if initialisms[w] {
			words[i] = strings.ToUpper(w)
		}
	}
	if fixed := strings.Join(words, ""); fixed != plain {
		return []string{fixed, plain}
	}
	return []string{plain}
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// snakeCase converts camelCase to snake_case: createdAt -> created_at.
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
