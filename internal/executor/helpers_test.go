package executor

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	language "github.com/hanpama/gqlengine/internal/language"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, field := range fields {
		t.AddField(field)
	}
	return t
}

func field(name string, typ *schema.TypeRef) *schema.Field {
	return schema.NewField(name, "", typ)
}

// dataJSON renders result data the way clients see it.
func dataJSON(t *testing.T, res *ExecutionResult) string {
	t.Helper()
	b, err := json.Marshal(res.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	return string(b)
}

func compactJSON(t *testing.T, s string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		t.Fatalf("compact %q: %v", s, err)
	}
	return buf.String()
}

// assertResult compares data as JSON, keeping key order significant, and
// errors by message and path.
func assertResult(t *testing.T, wantData string, wantErrors []GraphQLError, got *ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(compactJSON(t, wantData), dataJSON(t, got)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantErrors, got.Errors, cmpopts.EquateEmpty(), cmpopts.IgnoreFields(GraphQLError{}, "Locations")); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}
