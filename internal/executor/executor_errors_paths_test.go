package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/gqlengine/internal/schema"
)

// Pattern: Result comparison
func TestErrors_LocatedPaths_Result(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		sch := newSchemaWithQueryType(newObjectType("Query",
			field("a", schema.NamedType("String")),
			field("b", schema.NamedType("String")),
		))
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.a": NewMockErrorResolver(fmt.Errorf("boom")),
			"Query.b": NewMockValueResolver("B"),
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{\n  a\n  b\n}")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"a":null,"b":"B"}`, []GraphQLError{{Message: "boom", Path: Path{"a"}}}, gotRes)
		if diff := cmp.Diff([]Location{{Line: 2, Column: 3}}, gotRes.Errors[0].Locations); diff != "" {
			t.Fatalf("locations mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Nested", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("obj", schema.NamedType("Obj"))),
			newObjectType("Obj", field("a", schema.NamedType("String"))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.obj": NewMockValueResolver(map[string]any{}),
			"Obj.a":     NewMockErrorResolver(fmt.Errorf("boom")),
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ obj { a } }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"obj":{"a":null}}`, []GraphQLError{{Message: "boom", Path: Path{"obj", "a"}}}, gotRes)
	})

	t.Run("List index in path", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("objs", schema.ListType(schema.NamedType("Obj")))),
			newObjectType("Obj", field("a", schema.NamedType("String"))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.objs": NewMockValueResolver([]any{map[string]any{"idx": 0}, map[string]any{"idx": 1}}),
			"Obj.a": func(ctx context.Context, src any, args map[string]any) (any, error) {
				if src.(map[string]any)["idx"].(int) == 1 {
					return nil, fmt.Errorf("boom")
				}
				return "A", nil
			},
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ objs { a } }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"objs":[{"a":"A"},{"a":null}]}`, []GraphQLError{{Message: "boom", Path: Path{"objs", 1, "a"}}}, gotRes)
	})
}

// Pattern: Result comparison
func TestErrors_NonNullPropagation_Result(t *testing.T) {
	t.Run("Sync child nulls parent object", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("obj", schema.NamedType("Obj")), field("other", schema.NamedType("String"))),
			newObjectType("Obj", field("id", schema.NonNullType(schema.NamedType("ID")))),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.obj":   NewMockValueResolver(map[string]any{}),
			"Query.other": NewMockValueResolver("ok"),
			"Obj.id":      NewMockValueResolver(nil),
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ obj { id } other }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"obj":null,"other":"ok"}`, []GraphQLError{{Message: "Cannot return null for non-nullable field obj.id.", Path: Path{"obj", "id"}}}, gotRes)
	})

	t.Run("Async child nulls nearest nullable list element", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("wrap", schema.NonNullType(schema.NamedType("Wrap")))),
			newObjectType("Wrap", field("items", schema.NonNullType(schema.ListType(schema.NamedType("Item"))))),
			newObjectType("Item", field("name", schema.NonNullType(schema.NamedType("String"))).SetAsync(true)),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.wrap": NewMockValueResolver(map[string]any{}),
			"Wrap.items": NewMockValueResolver([]any{1, 2}),
			"Item.name": func(ctx context.Context, src any, args map[string]any) (any, error) {
				if src.(int) == 2 {
					return nil, fmt.Errorf("missing")
				}
				return "one", nil
			},
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ wrap { items { name } } }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"wrap":{"items":[{"name":"one"},null]}}`, []GraphQLError{{Message: "missing", Path: Path{"wrap", "items", 1, "name"}}}, gotRes)
	})

	t.Run("Nulled subtree prunes queued async work", func(t *testing.T) {
		sch := newSchemaWithQueryType(
			newObjectType("Query", field("obj", schema.NamedType("Obj"))),
			newObjectType("Obj",
				field("slow", schema.NamedType("String")).SetAsync(true),
				field("id", schema.NonNullType(schema.NamedType("ID"))),
			),
		)
		rt := NewMockRuntime(map[string]MockResolver{
			"Query.obj": NewMockValueResolver(map[string]any{}),
			"Obj.slow":  NewMockValueResolver("late"),
			"Obj.id":    NewMockErrorResolver(fmt.Errorf("no id")),
		})
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ obj { slow id } }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
		assertResult(t, `{"obj":null}`, []GraphQLError{{Message: "no id", Path: Path{"obj", "id"}}}, gotRes)
		for _, c := range rt.GetCalls() {
			require.NotEqual(t, CallKindAsync, c.Kind, "async field under a nulled object must not be resolved")
		}
	})
}

// Pattern: Result comparison
func TestErrors_LeafSerialization_Result(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		field("n", schema.NamedType("Int")),
		field("s", schema.NamedType("String")),
	))
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.n": NewMockValueResolver("not a number"),
		"Query.s": NewMockValueResolver("fine"),
	})
	SetSerializer(rt, func(typeName string, val any) (any, error) {
		if typeName == "Int" {
			if _, ok := val.(int); !ok {
				return nil, fmt.Errorf("Int cannot represent %v", val)
			}
		}
		return val, nil
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ n s }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	assertResult(t, `{"n":null,"s":"fine"}`, []GraphQLError{{Message: "Int cannot represent not a number", Path: Path{"n"}}}, gotRes)
	require.Equal(t, []string{"Int cannot represent not a number"}, gotRes.ErrorMessages())
}
