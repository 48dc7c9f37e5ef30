package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
)

func runCmd(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd, a := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = a.execute(cmd)
	return out.String(), errOut.String(), err
}

func TestQuery_Compact(t *testing.T) {
	out, _, err := runCmd(t, "", "query", "--json", "{ hello isAdmin }")
	require.NoError(t, err)
	if diff := cmp.Diff(`{"data":{"hello":"world","isAdmin":true}}`+"\n", out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_PrettyFromStdin(t *testing.T) {
	out, _, err := runCmd(t, "{ hello }\n", "query")
	require.NoError(t, err)
	want := "{\n  \"data\": {\n    \"hello\": \"world\"\n  }\n}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_VariablesAndOperation(t *testing.T) {
	doc := `query one($limit: Int) { users(limit: $limit) { username } }
query two { hello }`
	out, _, err := runCmd(t, "", "query", "--json", "-o", "one", "-v", `{"limit": 2}`, doc)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"users":[{"username":"Fred"},{"username":"Mary"}]}}`+"\n", out)
}

func TestQuery_Context(t *testing.T) {
	doc := `mutation { createPost(title: "a", content: "b") { post { title } } }`

	out, _, err := runCmd(t, "", "query", "--json", "-c", "is_anonymous=true", doc)
	require.NoError(t, err)
	require.Contains(t, out, `"createPost":null`)
	require.Contains(t, out, `"message":"Not Authenticated"`)

	out, _, err = runCmd(t, "", "query", "--json", "-c", "is_anonymous=false", doc)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"createPost":{"post":{"title":"a"}}}}`+"\n", out)

	for _, entry := range []string{"is_anonymous=1", "is_anonymous=yes", `is_anonymous="true"`} {
		out, _, err = runCmd(t, "", "query", "--json", "-c", entry, doc)
		require.NoError(t, err)
		require.Contains(t, out, `"createPost":null`, entry)
		require.Contains(t, out, `"message":"Not Authenticated"`, entry)
	}

	out, _, err = runCmd(t, "", "query", "--json", "-c", "is_anonymous=0", doc)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"createPost":{"post":{"title":"a"}}}}`+"\n", out)
}

func TestQuery_InputErrors(t *testing.T) {
	_, _, err := runCmd(t, "", "query")
	require.ErrorContains(t, err, "no query provided")

	_, _, err = runCmd(t, "", "query", "-v", "{", "{ hello }")
	require.ErrorContains(t, err, "invalid variables JSON")

	_, _, err = runCmd(t, "", "query", "-c", "novalue", "{ hello }")
	require.ErrorContains(t, err, `invalid context entry "novalue"`)
}

func TestQuery_FailureReleasesEventBus(t *testing.T) {
	_, _, err := runCmd(t, "", "query")
	require.Error(t, err)

	called := false
	unsubscribe := eventbus.Subscribe(func(context.Context, events.GraphQLFinish) { called = true })
	defer unsubscribe()
	eventbus.Publish(context.Background(), events.GraphQLFinish{})
	require.False(t, called, "event bus still installed after a failed command")
}

func TestQuery_ValidationErrorIsPrinted(t *testing.T) {
	out, _, err := runCmd(t, "", "query", "--json", "{ nope }")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, `{"data":null,"errors":[`), out)
	require.Contains(t, out, `Cannot query field \"nope\" on type \"Query\".`)
}

func TestQuery_LogsOperation(t *testing.T) {
	_, stderr, err := runCmd(t, "", "--log-format", "json", "query", "--json", "query greet { hello }")
	require.NoError(t, err)
	require.Contains(t, stderr, `"msg":"graphql operation finished"`)
	require.Contains(t, stderr, `"operation":"greet"`)
}

func TestDemo(t *testing.T) {
	out, _, err := runCmd(t, "", "demo", "--json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	require.Equal(t, "# getUsers", lines[0])
	require.Contains(t, lines[1], `"users":[{"id":"1","username":"Fred"`)
	require.Equal(t, "# createUser", lines[2])
	require.Contains(t, lines[3], `"username":"Freddo Bar"`)
	require.Equal(t, "# createPost", lines[4])
	require.Equal(t, `{"data":{"createPost":{"post":{"title":"Hello","content":"World"}}}}`, lines[5])
}

func TestSchema(t *testing.T) {
	out, _, err := runCmd(t, "", "schema")
	require.NoError(t, err)
	require.Contains(t, out, "type Query {")
	require.Contains(t, out, "users(limit: Int): [User]")
	require.Contains(t, out, "scalar DateTime")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gqlengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  pretty: false\n"), 0o600))

	out, _, err := runCmd(t, "", "--config", path, "query", "{ hello }")
	require.NoError(t, err)
	require.Equal(t, `{"data":{"hello":"world"}}`+"\n", out)

	_, _, err = runCmd(t, "", "--log-level", "loud", "schema")
	require.ErrorContains(t, err, "log.level")
}
