// Package main provides the entry point for the jobstats commands: the HTTP API, the data
// access service, one-shot reports and schema migration.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/jobstats/internal/config"
	"github.com/jonathan/jobstats/internal/logging"
)

// app carries the state every subcommand shares once the root has loaded it.
type app struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jobstats",
		Short: "Job review and posting statistics",
		Long: "jobstats ranks employers and cities by employee reviews, rates job postings " +
			"against matching reviews and expands the largest employers' listings.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newDataAccessCmd(a),
		newReportCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// load reads the configuration and builds the logger. Logs go to stderr so report
// output on stdout stays clean.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg, a.log, a.closeLog = cfg, log, closeLog
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
