package schema

// Built-in scalars and directives. Every schema shares these values and Render
// leaves them out, since gqlparser declares them in its prelude.
var (
	stringType  = NewType("String", TypeKindScalar, "The `String` scalar type represents textual data, represented as UTF-8 character sequences.")
	intType     = NewType("Int", TypeKindScalar, "The `Int` scalar type represents non-fractional signed whole numeric values.")
	floatType   = NewType("Float", TypeKindScalar, "The `Float` scalar type represents signed double-precision fractional values.")
	booleanType = NewType("Boolean", TypeKindScalar, "The `Boolean` scalar type represents `true` or `false`.")
	idType      = NewType("ID", TypeKindScalar, "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.")

	includeDirective = conditionalDirective("include",
		"Directs the executor to include this field or fragment only when the `if` argument is true.",
		"Included when true.")
	skipDirective = conditionalDirective("skip",
		"Directs the executor to skip this field or fragment when the `if` argument is true.",
		"Skipped when true.")
	deprecatedDirective = &Directive{
		Name:        "deprecated",
		Description: "Marks an element of a GraphQL schema as no longer supported.",
		Arguments: []*InputValue{
			NewInputValue("reason", "", NamedType("String")).SetDefault("No longer supported"),
		},
		Locations: []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"},
	}
)

func conditionalDirective(name, description, ifDescription string) *Directive {
	d := NewDirective(name, description).
		AddArgument(NewInputValue("if", ifDescription, NonNullType(NamedType("Boolean"))))
	d.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}
	return d
}

func isBuiltinType(t *Type) bool {
	switch t {
	case stringType, intType, floatType, booleanType, idType:
		return true
	}
	return false
}

func isBuiltinDirective(d *Directive) bool {
	switch d {
	case includeDirective, skipDirective, deprecatedDirective:
		return true
	}
	return false
}
