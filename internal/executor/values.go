package executor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// coerceVariableValues coerces variable values according to their types
func coerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	if variableValues == nil {
		variableValues = make(map[string]any)
	}
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			if v2, ok2 := variableValues["$"+name]; ok2 {
				val = v2
				ok = true
			}
		}
		if !ok {
			if varDef.DefaultValue != nil {
				val = astValueToGo(varDef.DefaultValue)
			} else if t.NonNull {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			} else {
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(sch, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the arguments of one field. Arguments that
// are neither written in the document nor defaulted are left out of the
// map. It reports false when any argument failed, in which case the field
// resolves to null without calling its resolver.
func coerceArgumentValues(
	state *executionState,
	fieldDef *schema.Field,
	field *language.Field,
	path Path,
) (map[string]any, bool) {
	coerced := make(map[string]any)
	ok := true

	for _, arg := range field.Arguments {
		if fieldDef.Argument(arg.Name) == nil {
			state.addErrorAt(fmt.Sprintf("Unknown argument %q on field %q.", arg.Name, fieldDef.Name), arg.Position, path)
			ok = false
		}
	}

	for _, argDef := range fieldDef.Arguments {
		name := argDef.Name
		var (
			val any
			has bool
		)
		if arg := field.Arguments.ForName(name); arg != nil {
			if arg.Value != nil && arg.Value.Kind == language.Variable {
				val, has = state.variableValues[arg.Value.Raw]
			} else {
				val, has = valueFromASTWithVars(arg.Value, state.variableValues), true
			}
		}
		if !has {
			if argDef.DefaultValue != nil {
				coerced[name] = argDef.DefaultValue
			} else if schema.IsNonNull(argDef.Type) {
				state.addErrorAt(fmt.Sprintf("argument '%s' of required type %s was not provided", name, argDef.Type), field.Position, path)
				ok = false
			}
			continue
		}
		cv, err := coerceValue(state.schema, val, argDef.Type)
		if err != nil {
			state.addErrorAt(fmt.Sprintf("argument '%s' cannot be coerced: %v", name, err), field.Position, path)
			ok = false
			continue
		}
		coerced[name] = cv
	}
	return coerced, ok
}

// valueFromASTWithVars converts an AST value to a runtime value with variable
// substitution at any depth. Unset variables become null.
func valueFromASTWithVars(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		name := value.Raw
		if v, ok := variableValues[name]; ok {
			return v
		}
		if v, ok := variableValues[strings.TrimPrefix(name, "$")]; ok {
			return v
		}
		return nil
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromASTWithVars(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			if f.Value != nil && f.Value.Kind == language.Variable {
				if v, ok := variableValues[f.Value.Raw]; ok {
					m[f.Name] = v
				}
				continue
			}
			m[f.Name] = valueFromASTWithVars(f.Value, variableValues)
		}
		return m
	default:
		return astValueToGo(value)
	}
}

// astValueToGo converts an AST value to a Go value
func astValueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		if iv, err := strconv.Atoi(value.Raw); err == nil {
			return iv
		}
		// out of range for int; let coercion reject it
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}

// coerceValue coerces a value to the specified GraphQL input type
func coerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	// Handle Non-Null wrapper
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", targetType)
		}
		return coerceValue(sch, value, schema.Unwrap(targetType))
	}

	// Handle null for nullable types
	if value == nil {
		return nil, nil
	}

	// Handle List wrapper
	if schema.IsList(targetType) {
		return coerceListValue(sch, value, targetType)
	}

	namedType := schema.GetNamedType(targetType)
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	t := sch.Types[namedType]
	if t == nil {
		return nil, fmt.Errorf("unknown input type %s", namedType)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok || !t.HasEnumValue(s) {
			return nil, fmt.Errorf("value %v is not a member of enum %s", value, t.Name)
		}
		return s, nil
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, value, t)
	case schema.TypeKindScalar:
		// custom scalars are passed through to resolvers as-is
		return value, nil
	default:
		return nil, fmt.Errorf("%s type %s cannot be used as an input", t.Kind, t.Name)
	}
}

func coerceInputObject(sch *schema.Schema, value any, t *schema.Type) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for %s, got %T", t.Name, value)
	}
	unknown := make([]string, 0)
	for k := range in {
		if t.InputField(k) == nil {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown field '%s' on input type %s", unknown[0], t.Name)
	}

	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		v, present := in[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("required field '%s' of %s was not provided", f.Name, t.Name)
			}
			continue
		}
		cv, err := coerceValue(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of %s: %w", f.Name, t.Name, err)
		}
		out[f.Name] = cv
	}
	if t.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be provided", t.Name)
	}
	return out, nil
}

// coerceListValue coerces a value to a list
func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	innerType := schema.Unwrap(listType)
	if slice, ok := value.([]any); ok {
		coercedSlice := make([]any, len(slice))
		for i, item := range slice {
			coercedItem, err := coerceValue(sch, item, innerType)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			coercedSlice[i] = coercedItem
		}
		return coercedSlice, nil
	}

	// Single value becomes a list of one
	coercedItem, err := coerceValue(sch, value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{coercedItem}, nil
}

// coerceToInt accepts integral numbers within the signed 32-bit range.
func coerceToInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", v)
		}
		n = int64(v)
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v (%T)", value, value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int(n), nil
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %v (%T)", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("String cannot represent a non string value: %v (%T)", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v (%T)", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent value: %v (%T)", value, value)
}
