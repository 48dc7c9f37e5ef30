package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/gqlengine/internal/language"
)

// NewSchema returns an empty schema holding the built-in scalars and the
// @include, @skip and @deprecated directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	s.AddType(stringType).
		AddType(intType).
		AddType(floatType).
		AddType(booleanType).
		AddType(idType)
	s.AddDirective(includeDirective).
		AddDirective(skipDirective).
		AddDirective(deprecatedDirective)
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type              { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type       { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type    { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type      { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type    { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type            { t.OneOf = oneOf; return t }
func (t *Type) SetSerialize(fn SerializeFunc) *Type  { t.Serialize = fn; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type   { t.SpecifiedByURL = &url; return t }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field          { f.Async = async; return f }
func (f *Field) SetResolve(fn ResolveFunc) *Field    { f.Resolve = fn; return f }
func (f *Field) SetDefault(fn DefaultFunc) *Field    { f.Default = fn; return f }
func (f *Field) AddArgument(arg *InputValue) *Field  { f.Arguments = append(f.Arguments, arg); return f }
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive        { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(arg *InputValue) *Directive { d.Arguments = append(d.Arguments, arg); return d }

// Validate checks that the schema is executable: root types exist, every
// referenced type is declared, object and interface types have fields, and
// resolvers are only attached to object fields.
func (s *Schema) Validate() error {
	var errs []error
	if s.QueryType == "" {
		errs = append(errs, errors.New("query root type is not set"))
	}
	for _, root := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if root == "" {
			continue
		}
		t := s.Types[root]
		if t == nil {
			errs = append(errs, fmt.Errorf("root type %s is not defined", root))
		} else if t.Kind != TypeKindObject {
			errs = append(errs, fmt.Errorf("root type %s must be an object type, got %s", root, t.Kind))
		}
	}

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := s.Types[name]
		switch t.Kind {
		case TypeKindObject, TypeKindInterface:
			if len(t.Fields) == 0 {
				errs = append(errs, fmt.Errorf("%s %s must define one or more fields", t.Kind, name))
			}
			for _, f := range t.Fields {
				if err := s.checkOutputRef(f.Type); err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", name, f.Name, err))
				}
				if f.Resolve != nil && t.Kind != TypeKindObject {
					errs = append(errs, fmt.Errorf("%s.%s: resolvers may only be bound on object types", name, f.Name))
				}
				for _, arg := range f.Arguments {
					if err := s.checkInputRef(arg.Type); err != nil {
						errs = append(errs, fmt.Errorf("%s.%s(%s): %w", name, f.Name, arg.Name, err))
					}
				}
			}
			for _, iface := range t.Interfaces {
				if it := s.Types[iface]; it == nil || it.Kind != TypeKindInterface {
					errs = append(errs, fmt.Errorf("%s implements unknown interface %s", name, iface))
				}
			}
		case TypeKindUnion:
			for _, member := range t.PossibleTypes {
				if mt := s.Types[member]; mt == nil || mt.Kind != TypeKindObject {
					errs = append(errs, fmt.Errorf("union %s member %s is not an object type", name, member))
				}
			}
		case TypeKindInputObject:
			for _, f := range t.InputFields {
				if err := s.checkInputRef(f.Type); err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", name, f.Name, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Schema) checkOutputRef(ref *TypeRef) error {
	name := GetNamedType(ref)
	t := s.Types[name]
	if t == nil {
		return fmt.Errorf("unknown type %q", name)
	}
	if t.Kind == TypeKindInputObject {
		return fmt.Errorf("input type %s cannot be used as an output type", name)
	}
	return nil
}

func (s *Schema) checkInputRef(ref *TypeRef) error {
	name := GetNamedType(ref)
	t := s.Types[name]
	if t == nil {
		return fmt.Errorf("unknown type %q", name)
	}
	switch t.Kind {
	case TypeKindScalar, TypeKindEnum, TypeKindInputObject:
		return nil
	}
	return fmt.Errorf("%s type %s cannot be used as an input type", t.Kind, name)
}

// BuildFromSDL parses SDL into a Schema. Resolvers are attached afterwards
// with Bind or SetResolve.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.LoadSchema("schema", sdl)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return buildFromAST(doc)
}

func buildFromAST(doc *ast.Schema) (*Schema, error) {
	s := NewSchema(doc.Description)
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	names := make([]string, 0, len(doc.Types))
	for name, def := range doc.Types {
		if def.BuiltIn {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := doc.Types[name]
		switch def.Kind {
		case ast.Object:
			s.AddType(buildObject(def, TypeKindObject))
		case ast.Interface:
			s.AddType(buildObject(def, TypeKindInterface))
		case ast.Union:
			t := NewType(def.Name, TypeKindUnion, def.Description)
			for _, member := range def.Types {
				t.AddPossibleType(member)
			}
			s.AddType(t)
		case ast.Enum:
			t := NewType(def.Name, TypeKindEnum, def.Description)
			for _, v := range def.EnumValues {
				ev := NewEnumValue(v.Name, v.Description)
				if reason, ok := deprecation(v.Directives); ok {
					ev.Deprecate(reason)
				}
				t.AddEnumValue(ev)
			}
			s.AddType(t)
		case ast.InputObject:
			t := NewType(def.Name, TypeKindInputObject, def.Description).
				SetOneOf(def.Directives.ForName("oneOf") != nil)
			for _, f := range def.Fields {
				in, err := buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
				}
				t.AddInputField(in)
			}
			s.AddType(t)
		case ast.Scalar:
			s.AddType(NewType(def.Name, TypeKindScalar, def.Description))
		}
	}

	for _, t := range s.Types {
		if t.Kind != TypeKindObject && t.Kind != TypeKindInterface {
			continue
		}
		def := doc.Types[t.Name]
		if def == nil || def.BuiltIn {
			continue
		}
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			field := NewField(f.Name, f.Description, buildTypeRef(f.Type))
			if reason, ok := deprecation(f.Directives); ok {
				field.Deprecate(reason)
			}
			for _, a := range f.Arguments {
				in, err := buildInputValue(a.Name, a.Description, a.Type, a.DefaultValue)
				if err != nil {
					return nil, fmt.Errorf("%s.%s(%s): %w", def.Name, f.Name, a.Name, err)
				}
				field.AddArgument(in)
			}
			t.AddField(field)
		}
	}
	return s, nil
}

func buildObject(def *ast.Definition, kind TypeKind) *Type {
	t := NewType(def.Name, kind, def.Description)
	for _, iface := range def.Interfaces {
		t.AddInterface(iface)
	}
	return t
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, err
		}
		in.SetDefault(v)
	}
	return in, nil
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}
