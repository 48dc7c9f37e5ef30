package executor

import (
	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// collectedField groups every field node that writes to one response key.
type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

// collectedFieldMap keeps response keys in first-seen order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

func (m *collectedFieldMap) add(field *language.Field) {
	key := field.Alias
	if key == "" {
		key = field.Name
	}
	if i, ok := m.index[key]; ok {
		m.fields[i].Fields = append(m.fields[i].Fields, field)
		return
	}
	m.index[key] = len(m.fields)
	m.fields = append(m.fields, collectedField{ResponseName: key, Fields: []*language.Field{field}})
}

func (m *collectedFieldMap) orderedFields() []collectedField { return m.fields }

// fieldCollector walks one selection set for a concrete object type,
// flattening fragments that apply to it.
type fieldCollector struct {
	state      *executionState
	objectType *schema.Type
	out        *collectedFieldMap
	spread     map[string]struct{}
}

// collectFields returns the fields selected on objectType, grouped by
// response key, after @skip/@include and fragment type conditions.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	c := &fieldCollector{
		state:      state,
		objectType: objectType,
		out:        &collectedFieldMap{index: make(map[string]int)},
		spread:     make(map[string]struct{}),
	}
	c.walk(selectionSet)
	return c.out
}

func (c *fieldCollector) walk(selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if c.included(sel.Directives) {
				c.out.add(sel)
			}
		case *language.InlineFragment:
			if c.included(sel.Directives) && c.applies(sel.TypeCondition) {
				c.walk(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if !c.included(sel.Directives) {
				continue
			}
			// A named fragment is expanded at most once per selection set.
			if _, seen := c.spread[sel.Name]; seen {
				continue
			}
			c.spread[sel.Name] = struct{}{}
			def := c.state.document.Fragments.ForName(sel.Name)
			if def == nil || !c.applies(def.TypeCondition) || !c.included(def.Directives) {
				continue
			}
			c.walk(def.SelectionSet)
		}
	}
}

// applies reports whether a fragment on typeCondition selects fields of the
// object being collected. Interface and union conditions match their
// possible types.
func (c *fieldCollector) applies(typeCondition string) bool {
	return typeCondition == "" || c.state.schema.IsPossibleType(typeCondition, c.objectType.Name)
}

// included evaluates @skip and @include. A condition that is not a boolean
// leaves the node in.
func (c *fieldCollector) included(directives language.DirectiveList) bool {
	if cond, ok := c.condition(directives, "skip"); ok && cond {
		return false
	}
	if cond, ok := c.condition(directives, "include"); ok && !cond {
		return false
	}
	return true
}

func (c *fieldCollector) condition(directives language.DirectiveList, name string) (value, ok bool) {
	d := directives.ForName(name)
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = valueFromAST(c.state, arg.Value).(bool)
	return value, ok
}

// valueFromAST converts a literal or variable reference using the
// operation's coerced variables.
func valueFromAST(state *executionState, value *language.Value) any {
	if value == nil {
		return nil
	}
	return valueFromASTWithVars(value, state.variableValues)
}
