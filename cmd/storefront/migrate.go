package main

import (
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger and cart storage schemas, then exit",
		Long: `Apply the schema for the configured backends.

postgres ledger: runs the migrations in db.migrations
mongo ledger:    creates the collection indexes
sqlite carts:    runs the migrations in sqlite.migrations`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			_, closeRepo, err := openLedgerRepository(ctx, cfg, log)
			if err != nil {
				return err
			}
			closeRepo()

			_, closeStorage, err := openCartStorage(ctx, cfg, log)
			if err != nil {
				return err
			}
			closeStorage()

			log.Info("schemas up to date", "ledger", cfg.Ledger.Backend, "cart", cfg.Cart.Backend)
			return nil
		},
	}
}
