package cmd

import (
	"fmt"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/httpserver"
	"github.com/spf13/cobra"
)

var refreshInterval = time.Minute

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve enhanced listings over HTTP",
		Long: `serve keeps the latest merge result in memory, refreshes it periodically
and exposes it together with single-identifier resolution and Prometheus
metrics.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				ctx := c.Context()
				source, store, closeSource, err := a.openSource(ctx)
				defer closeSource()
				if err != nil {
					return err
				}

				catalog := httpserver.NewCatalog(a.recorder, source, a.merger)
				if err := catalog.Refresh(ctx); err != nil {
					// /ready reports the failure until a later refresh succeeds
					fmt.Fprintf(c.ErrOrStderr(), "initial refresh failed: %s\n", err)
				}
				go catalog.Run(ctx, refreshInterval)

				deps := httpserver.Dependencies{
					Catalog:  catalog,
					Resolver: a.resolver,
					Gatherer: a.registry,
				}
				if store != nil {
					deps.Database = store
				}

				fmt.Fprintf(c.ErrOrStderr(), "listening on %s\n", a.cfg.ListenAddr())
				return httpserver.Serve(ctx, a.cfg.ListenAddr(), httpserver.NewRouter(deps), shutdownTimeout)
			})
		},
	}
	c.Flags().DurationVar(&refreshInterval, "refresh-interval", time.Minute, "how often listings are re-merged, 0 to disable")
	return c
}
