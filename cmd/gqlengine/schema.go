package main

import (
	"fmt"

	"github.com/spf13/cobra"

	demo "github.com/hanpama/gqlengine/internal/demo"
	schema "github.com/hanpama/gqlengine/internal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the demo schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sch, err := demo.NewSchema(a.demoOptions()...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return err
		},
	}
}
