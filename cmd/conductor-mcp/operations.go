package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
)

func newOperationsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operation catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cat.Describe())
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tROUTE\tREQUIRED\tMUTATES")
			for _, op := range cat.Operations() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n",
					op.Name(),
					op.Routes()[0],
					strings.Join(op.Spec.Required(), ","),
					op.Mutation(),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print operation specs as JSON")
	return cmd
}
