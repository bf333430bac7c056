package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Print the pages found in the portal's table of contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := ctx.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			pages, err := w.service.DiscoverPages(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NO.\tTITLE\tURL")
			for _, p := range pages {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Number, p.Title, p.URL)
			}
			return tw.Flush()
		},
	}
}
