package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/docveille/monitor"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP trigger server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := ctx.wire()
			if err != nil {
				return err
			}
			defer w.Close()

			scheduler := monitor.NewScheduler(w.service, w.cfg.Interval, w.logger)
			server := monitor.NewServer(w.service, w.store, w.cfg.AuthHash, w.logger)

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return scheduler.Run(gctx) })
			g.Go(func() error { return server.ListenAndServe(gctx, w.cfg.ListenAddr) })
			return g.Wait()
		},
	}
}
