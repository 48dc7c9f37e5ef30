package schema

import (
	"context"
	"fmt"
	"sync"

	language "github.com/hanpama/gqlengine/internal/language"
)

// ResolveFunc computes the value of one field from its parent value and
// coerced arguments. The execution context bag travels on ctx.
type ResolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// DefaultFunc yields the value used when a field resolves to null. It is
// invoked on every resolution; wrap a precomputed value with Frozen to keep
// one value for the lifetime of the schema.
type DefaultFunc func() any

// SerializeFunc converts a Go value into the JSON-safe representation of a
// custom scalar.
type SerializeFunc func(value any) (any, error)

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	astOnce sync.Once
	ast     *language.Schema
	astErr  error
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Field returns the definition of fieldName on typeName, or nil.
func (s *Schema) Field(typeName, fieldName string) *Field {
	t := s.Types[typeName]
	if t == nil {
		return nil
	}
	return t.Field(fieldName)
}

// IsPossibleType reports whether objectType may stand in for abstractType:
// equal names, a union member, or an implementer of the interface.
func (s *Schema) IsPossibleType(abstractType, objectType string) bool {
	if abstractType == objectType {
		return true
	}
	abs := s.Types[abstractType]
	if abs == nil {
		return false
	}
	switch abs.Kind {
	case TypeKindUnion:
		for _, name := range abs.PossibleTypes {
			if name == objectType {
				return true
			}
		}
	case TypeKindInterface:
		obj := s.Types[objectType]
		if obj == nil {
			return false
		}
		for _, name := range obj.Interfaces {
			if name == abstractType {
				return true
			}
		}
	}
	return false
}

// AST returns the gqlparser view of the schema used to validate documents.
// It is derived from the rendered SDL once and cached.
func (s *Schema) AST() (*language.Schema, error) {
	s.astOnce.Do(func() {
		s.ast, s.astErr = language.LoadSchema("schema", Render(s))
	})
	return s.ast, s.astErr
}

// Bind attaches fn as the resolver of typeName.fieldName.
func (s *Schema) Bind(typeName, fieldName string, fn ResolveFunc) error {
	f := s.Field(typeName, fieldName)
	if f == nil {
		return fmt.Errorf("bind %s.%s: no such field", typeName, fieldName)
	}
	f.Resolve = fn
	return nil
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// Serialize overrides leaf serialization for custom scalars.
	Serialize SerializeFunc `json:"-"`
}

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field called name, or nil.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasEnumValue reports whether name is a member of an enum type.
func (t *Type) HasEnumValue(name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Async             bool
	IsDeprecated      bool
	DeprecationReason string

	Resolve ResolveFunc `json:"-"`
	Default DefaultFunc `json:"-"`
}

// Argument returns the argument definition called name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Helper functions for TypeRef
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

func (t *TypeRef) String() string { return renderTypeRef(t) }

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }

// Frozen returns a DefaultFunc that always yields v.
func Frozen(v any) DefaultFunc { return func() any { return v } }
