package main

import (
	"fmt"

	"github.com/spf13/cobra"

	demo "github.com/hanpama/gqlengine/internal/demo"
)

func newDemoCmd(a *app) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the sample users query, createUser and createPost operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exec, err := a.executor()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, op := range demo.Operations {
				fmt.Fprintf(out, "# %s\n", op.Name)
				result := exec.Execute(cmd.Context(), op.Request())
				if err := a.writeResult(out, result, compact); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "json", false, "Output compact JSON (no formatting)")
	return cmd
}
