package main

import (
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/internal/reconcile"
	"github.com/fjod/storefront/pkg/shutdown"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var staleAfter time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile stale pending records once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := shutdown.WithSignals(cmd.Context())
			defer stop()

			repo, closeRepo, err := openLedgerRepository(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeRepo()
			events, closeEvents := newEventPublisher(cfg, log)
			defer closeEvents()
			l := ledger.New(repo, events, log)

			conn, err := billing.Dial(cfg.Billing.Addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			opts := reconcile.SweeperOptions{
				StaleAfter:  cfg.Sweeper.StaleAfter,
				BatchSize:   cfg.Sweeper.BatchSize,
				Concurrency: cfg.Sweeper.Concurrency,
			}
			if staleAfter > 0 {
				opts.StaleAfter = staleAfter
			}

			reconciler := reconcile.NewReconciler(l, billing.NewClient(conn, cfg.Billing.Timeout), log)
			settled := reconcile.NewSweeper(l, reconciler, opts, log).Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "settled %d records\n", settled)
			return nil
		},
	}
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "only sweep records pending longer than this, overrides sweeper.stale_after")
	return cmd
}
