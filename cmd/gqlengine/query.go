package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	execctx "github.com/hanpama/gqlengine/internal/execctx"
	executor "github.com/hanpama/gqlengine/internal/executor"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		compact    bool
		variables  string
		operation  string
		contextKVs []string
	)
	cmd := &cobra.Command{
		Use:     "query [document]",
		Aliases: []string{"graphql"},
		Short:   "Execute a GraphQL query or mutation",
		Long: `Execute a GraphQL query or mutation against the demo schema.

Examples:
  # Greet
  gqlengine query '{ hello }'

  # Use variables
  gqlengine query -v '{"limit": 2}' 'query ($limit: Int) { users(limit: $limit) { username } }'

  # Run createPost as an anonymous caller
  gqlengine query -c is_anonymous=true 'mutation { createPost(title: "a") { post { title } } }'

  # Read from stdin
  cat query.graphql | gqlengine query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			} else {
				q, err := readQuery(cmd.InOrStdin())
				if err != nil {
					return err
				}
				query = q
			}
			if query == "" {
				return fmt.Errorf("no query provided (pass as argument or pipe to stdin)")
			}

			var vars map[string]any
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &vars); err != nil {
					return fmt.Errorf("invalid variables JSON: %w", err)
				}
			}
			vals, err := parseContext(contextKVs)
			if err != nil {
				return err
			}

			exec, err := a.executor()
			if err != nil {
				return err
			}
			result := exec.Execute(cmd.Context(), executor.Request{
				Query:         query,
				OperationName: operation,
				Variables:     vars,
				Context:       vals,
			})
			return a.writeResult(cmd.OutOrStdout(), result, compact)
		},
	}
	cmd.Flags().BoolVar(&compact, "json", false, "Output compact JSON (no formatting)")
	cmd.Flags().StringVarP(&variables, "variables", "v", "", "Variables as a JSON object")
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "Operation name (for multi-operation documents)")
	cmd.Flags().StringArrayVarP(&contextKVs, "context", "c", nil, "Execution context entry key=value; value is parsed as JSON when possible. Repeatable")
	return cmd
}

// readQuery reads the document from r unless r is an interactive terminal.
func readQuery(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return "", fmt.Errorf("checking stdin: %w", err)
		}
		if stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func parseContext(kvs []string) (execctx.Values, error) {
	vals := execctx.Values{}
	for _, kv := range kvs {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context entry %q: want key=value", kv)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vals[key] = v
	}
	return vals, nil
}
