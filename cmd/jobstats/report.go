package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobstats/internal/aggregation"
	"github.com/jonathan/jobstats/internal/observability"
)

type reportFlags struct {
	addr   string
	asJSON bool
}

func newReportCmd(a *app) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run one aggregation and print the result",
		Long:  `Run a single engine operation against the data access service and print a summary, or JSON with --json.`,
	}
	cmd.PersistentFlags().StringVar(&f.addr, "addr", "", "Data access service address (default from config)")
	cmd.PersistentFlags().BoolVar(&f.asJSON, "json", false, "Print JSON instead of a formatted summary")

	cmd.AddCommand(
		reportSubcommand(a, f, "best-companies", "Top employers by review composite",
			func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error {
				companies, err := e.BestEmployers(ctx)
				if err != nil {
					return err
				}
				return emit(f, out, map[string]any{"companies": companies}, func() { p.PrintBestCompanies(companies) })
			}),
		reportSubcommand(a, f, "best-cities", "Top cities by mean review rating",
			func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error {
				cities, err := e.BestCities(ctx)
				if err != nil {
					return err
				}
				return emit(f, out, map[string]any{"cities": cities}, func() { p.PrintBestCities(cities) })
			}),
		reportSubcommand(a, f, "largest-jobs", "Job postings of the largest employers",
			func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error {
				jobs, err := e.LargestEmployersJobs(ctx)
				if err != nil {
					return err
				}
				return emit(f, out, map[string]any{"jobs": jobs, "count": len(jobs)}, func() { p.PrintLargestEmployersJobs(jobs) })
			}),
		newJobsWithRatingReport(a, f),
		newAverageSalaryReport(a, f),
	)
	return cmd
}

type reportFunc func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error

func reportSubcommand(a *app, f *reportFlags, use, short string, run reportFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, a, f, run)
		},
	}
}

func newJobsWithRatingReport(a *app, f *reportFlags) *cobra.Command {
	var title, city string
	cmd := reportSubcommand(a, f, "jobs-with-rating", "Postings for a title and city with review ratings",
		func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error {
			rated, err := e.JobsWithRating(ctx, title, city)
			if err != nil {
				return err
			}
			return emit(f, out, map[string]any{"jobs": rated}, func() { p.PrintJobsWithRating(title, city, rated) })
		})
	cmd.Flags().StringVar(&title, "title", "", "Job title (required)")
	cmd.Flags().StringVar(&city, "city", "", "Location (required)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func newAverageSalaryReport(a *app, f *reportFlags) *cobra.Command {
	var title string
	cmd := reportSubcommand(a, f, "average-salary", "Mean normalized salary for a title",
		func(ctx context.Context, e *aggregation.Engine, p *observability.Printer, out io.Writer) error {
			avg, err := e.AverageSalary(ctx, title)
			if err != nil {
				return err
			}
			return emit(f, out, map[string]any{"averageSalary": avg}, func() { p.PrintAverageSalary(title, avg) })
		})
	cmd.Flags().StringVar(&title, "title", "", "Job title (required)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func runReport(cmd *cobra.Command, a *app, f *reportFlags, run reportFunc) error {
	addr := a.cfg.DataAccess.Addr
	if f.addr != "" {
		addr = f.addr
	}
	if addr == "" {
		return errors.New("data access address is required")
	}

	engine, client, err := a.dialEngine(addr, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	return run(cmd.Context(), engine, observability.NewPrinter(out), out)
}

// emit writes v as indented JSON when --json is set, otherwise calls pretty.
func emit(f *reportFlags, out io.Writer, v any, pretty func()) error {
	if !f.asJSON {
		pretty()
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
