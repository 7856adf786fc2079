package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobstats/internal/config"
	"github.com/jonathan/jobstats/internal/metrics"
	"github.com/jonathan/jobstats/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port int
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes the rankings, rated job search and write endpoints. Data comes from the data access service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.DataAccess.Addr = addr
			}
			return runServe(cmd, a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	cmd.Flags().StringVar(&addr, "addr", "", "Data access service address (host:port)")
	return cmd
}

func serverConfig(c config.ServerConfig) server.Config {
	return server.Config{
		Port:            c.Port,
		ReadTimeout:     c.ReadTimeout.Std(),
		WriteTimeout:    c.WriteTimeout.Std(),
		ShutdownTimeout: c.ShutdownTimeout.Std(),
		RateLimit:       c.RateLimit,
		RateBurst:       c.RateBurst,
		CORSOrigins:     c.CORSOrigins,
	}
}

func runServe(cmd *cobra.Command, a *app) error {
	m := metrics.New()

	engine, client, err := a.dialEngine(a.cfg.DataAccess.Addr, m)
	if err != nil {
		return err
	}
	defer client.Close()

	srv, err := server.New(serverConfig(a.cfg.Server), engine, client, m, a.log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.WithField("data_access", a.cfg.DataAccess.Addr).Info("Starting API server")
	return srv.Start(ctx)
}
