package resolve

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	schema "github.com/hanpama/gqlengine/internal/schema"
)

func serializeLeaf(t *schema.Type, value any) (any, error) {
	v := unwrapPointer(reflect.ValueOf(value))
	if !v.IsValid() {
		return nil, nil
	}

	if t.Kind == schema.TypeKindEnum {
		if v.Kind() != reflect.String || !t.HasEnumValue(v.String()) {
			return nil, fmt.Errorf("Enum %q cannot represent value: %v", t.Name, value)
		}
		return v.String(), nil
	}

	switch t.Name {
	case "Int":
		return serializeInt(v)
	case "Float":
		switch {
		case v.CanInt():
			return float64(v.Int()), nil
		case v.CanUint():
			return float64(v.Uint()), nil
		case v.CanFloat():
			return v.Float(), nil
		}
		return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
	case "String":
		if v.Kind() == reflect.String {
			return v.String(), nil
		}
		if s, ok := value.(fmt.Stringer); ok {
			return s.String(), nil
		}
		return nil, fmt.Errorf("String cannot represent value: %v", value)
	case "Boolean":
		if v.Kind() == reflect.Bool {
			return v.Bool(), nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	case "ID":
		switch {
		case v.Kind() == reflect.String:
			return v.String(), nil
		case v.CanInt():
			return strconv.FormatInt(v.Int(), 10), nil
		case v.CanUint():
			return strconv.FormatUint(v.Uint(), 10), nil
		}
		return nil, fmt.Errorf("ID cannot represent value: %v", value)
	}
	// custom scalar without a serializer
	return v.Interface(), nil
}

func serializeInt(v reflect.Value) (any, error) {
	var n int64
	switch {
	case v.CanInt():
		n = v.Int()
	case v.CanUint():
		u := v.Uint()
		if u > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", u)
		}
		n = int64(u)
	case v.CanFloat():
		f := v.Float()
		if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", f)
		}
		n = int64(f)
	default:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v.Interface())
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int(n), nil
}
