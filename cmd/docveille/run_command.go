package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/docveille/notify"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var printReport bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one monitoring cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := ctx.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			report, err := w.service.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if printReport {
				fmt.Fprintln(cmd.OutOrStdout(), notify.BuildText(report))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printReport, "print", false, "Print the plain-text report to stdout")
	return cmd
}
