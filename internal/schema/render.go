package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema. Types and directives come out sorted
// by name; built-ins are left to the parser's prelude. The output is what
// AST loads, so it must stay parseable by gqlparser.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	w.schemaBlock(s)

	for _, name := range sortedKeys(s.Types, func(t *Type) bool { return !isBuiltinType(t) }) {
		w.typeDef(s.Types[name])
	}
	for _, name := range sortedKeys(s.Directives, func(d *Directive) bool { return !isBuiltinDirective(d) }) {
		w.directiveDef(s.Directives[name])
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func sortedKeys[V any](m map[string]V, keep func(V) bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if keep(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.Builder, format, args...)
}

// schemaBlock writes `schema { ... }` only when a root type is not named
// after its operation; gqlparser infers the conventional names.
func (w *sdlWriter) schemaBlock(s *Schema) {
	roots := []struct{ op, name, conventional string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := false
	for _, r := range roots {
		if r.name != "" && r.name != r.conventional {
			custom = true
		}
	}
	if !custom {
		return
	}
	w.WriteString("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			w.printf("  %s: %s\n", r.op, r.name)
		}
	}
	w.WriteString("}\n\n")
}

func (w *sdlWriter) description(desc string) {
	if desc == "" {
		return
	}
	w.printf("\"\"\"\n%s\n\"\"\"\n", strings.ReplaceAll(desc, `"`, `\"`))
}

func (w *sdlWriter) deprecated(is bool, reason string) {
	if !is {
		return
	}
	w.WriteString(" @deprecated")
	if reason != "" {
		w.printf("(reason: %q)", reason)
	}
}

func (w *sdlWriter) typeDef(t *Type) {
	w.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			w.printf(" @specifiedBy(url: %q)", *t.SpecifiedByURL)
		}
		w.WriteString("\n\n")
	case TypeKindEnum:
		w.WriteString("enum " + t.Name + " {\n")
		for _, v := range t.EnumValues {
			w.description(v.Description)
			w.WriteString("  " + v.Name)
			w.deprecated(v.IsDeprecated, v.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	case TypeKindInputObject:
		w.WriteString("input " + t.Name)
		if t.OneOf {
			w.WriteString(" @oneOf")
		}
		w.WriteString(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description)
			w.WriteString("  " + inputValueSDL(f))
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		w.WriteString(keyword + " " + t.Name)
		if len(t.Interfaces) > 0 {
			w.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		w.WriteString(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description)
			w.WriteString("  " + f.Name + argumentsSDL(f.Arguments) + ": " + renderTypeRef(f.Type))
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	case TypeKindUnion:
		w.WriteString("union " + t.Name + " = " + strings.Join(t.PossibleTypes, " | ") + "\n\n")
	}
}

func (w *sdlWriter) directiveDef(d *Directive) {
	w.description(d.Description)
	w.WriteString("directive @" + d.Name + argumentsSDL(d.Arguments))
	if d.IsRepeatable {
		w.WriteString(" repeatable")
	}
	w.WriteString(" on " + strings.Join(d.Locations, " | ") + "\n\n")
}

// argumentsSDL renders an argument list inline. Argument descriptions are
// not emitted.
func argumentsSDL(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = inputValueSDL(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func inputValueSDL(v *InputValue) string {
	s := v.Name + ": " + renderTypeRef(v.Type)
	if v.DefaultValue != nil {
		s += " = " + renderValue(v.DefaultValue)
	}
	return s
}

func renderTypeRef(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case TypeRefKindNamed:
		return ref.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(ref.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(ref.OfType) + "!"
	}
	return ""
}

// renderValue writes a default value as a GraphQL literal with object
// fields sorted by name. Unknown types fall back to fmt.Sprint.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = renderValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(v, func(any) bool { return true })
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = k + ": " + renderValue(v[k])
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(value)
}
