package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/consumer"
	api "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/internal/reconcile"
	"github.com/fjod/storefront/internal/subscription"
	"github.com/fjod/storefront/pkg/shutdown"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API with its background workers",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := shutdown.WithSignals(cmd.Context())
	defer stop()

	events, closeEvents := newEventPublisher(cfg, log)
	defer closeEvents()

	repo, closeRepo, err := openLedgerRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()
	l := ledger.New(repo, events, log)

	storage, closeStorage, err := openCartStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()
	carts := cart.NewManager(storage, log)

	conn, err := billing.Dial(cfg.Billing.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	billingClient := billing.NewClient(conn, cfg.Billing.Timeout)

	orchestrator := checkout.NewOrchestrator(l, newGateway(cfg, log), checkout.Options{
		PublicURL:         cfg.Checkout.PublicURL,
		Currency:          cfg.Checkout.Currency,
		MinOrderAmount:    cfg.Checkout.MinOrderAmount,
		MinDonationAmount: cfg.Checkout.MinDonationAmount,
	}, log)
	reconciler := reconcile.NewReconciler(l, billingClient, log)
	subscriptions := subscription.NewManager(l, billingClient, log)

	timeout := cfg.HTTP.RequestTimeout
	router := api.NewRouter(api.RouterConfig{
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
	}, api.Handlers{
		Cart:          api.NewCartHandler(carts, timeout, log),
		Checkout:      api.NewCheckoutHandler(orchestrator, carts, timeout, log),
		Return:        api.NewReturnHandler(l, reconciler, carts, timeout, log),
		Records:       api.NewRecordsHandler(l, timeout, log),
		Subscriptions: api.NewSubscriptionHandler(subscriptions, timeout, log),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("storefront listening", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		carts.RunEviction(gctx, cfg.Cart.EvictInterval, cfg.Cart.IdleAfter)
		return nil
	})

	if cfg.Sweeper.Enabled {
		sweeper := reconcile.NewSweeper(l, reconciler, reconcile.SweeperOptions{
			Interval:    cfg.Sweeper.Interval,
			StaleAfter:  cfg.Sweeper.StaleAfter,
			BatchSize:   cfg.Sweeper.BatchSize,
			Concurrency: cfg.Sweeper.Concurrency,
		}, log)
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	}

	if cfg.Kafka.Enabled {
		notifications := consumer.NewNotificationConsumer(l, log, cfg.Kafka.NotificationsTopic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		defer notifications.Close()
		clearer := consumer.NewCartClearer(carts, log, cfg.Kafka.EventsTopic, cfg.Kafka.GroupID+"-carts", cfg.Kafka.Brokers...)
		defer clearer.Close()

		g.Go(func() error {
			notifications.Run(gctx)
			return nil
		})
		g.Go(func() error {
			clearer.Run(gctx)
			return nil
		})
	}

	err = g.Wait()
	log.Info("storefront stopped")
	return err
}
