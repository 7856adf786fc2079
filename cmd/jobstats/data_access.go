package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/jonathan/jobstats/internal/dataaccess"
	"github.com/jonathan/jobstats/internal/db"
)

func newDataAccessCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "data-access",
		Short: "Start the data access gRPC service",
		Long:  `Start the gRPC service that pages reviews, employers and job postings out of PostgreSQL and handles the write paths.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.DataAccess.ListenAddr = listen
			}
			return runDataAccess(cmd, a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config, :50051)")
	return cmd
}

func runDataAccess(cmd *cobra.Command, a *app) error {
	if a.cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, a.cfg.Database.URL, a.cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	lis, err := net.Listen("tcp", a.cfg.DataAccess.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.DataAccess.ListenAddr, err)
	}
	return serveDataAccess(ctx, lis, database, a.log)
}

// serveDataAccess serves store on lis until ctx is cancelled, then drains in-flight calls.
func serveDataAccess(ctx context.Context, lis net.Listener, store dataaccess.Store, log logrus.FieldLogger) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(dataaccess.LoggingInterceptor(log)))
	dataaccess.NewServer(store, log).Register(srv)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", lis.Addr().String()).Info("Data access service starting")
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("data access service error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down data access service...")
	srv.GracefulStop()
	return nil
}
