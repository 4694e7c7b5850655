package main

import (
	"fmt"
	"net"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/pkg/shutdown"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/reflection"
)

func billingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "billing",
		Short: "Run the billing gRPC service that confirms payments and cancels subscriptions",
		RunE:  runBilling,
	}
}

func runBilling(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := shutdown.WithSignals(cmd.Context())
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	grpcServer := billing.NewGRPCServer(billing.NewServer(newGateway(cfg, log), log), log)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	errCh := make(chan error, 1)
	go func() {
		log.Info("billing service listening", "port", cfg.GRPC.Port)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down billing service")
	grpcServer.GracefulStop()
	log.Info("billing service stopped")
	return nil
}
