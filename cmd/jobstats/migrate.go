package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobstats/internal/db"
	"github.com/jonathan/jobstats/internal/types"
)

// employerInserter is the slice of the store the seeding step needs.
type employerInserter interface {
	CreateEmployer(ctx context.Context, e types.Employer) error
}

func newMigrateCmd(a *app) *cobra.Command {
	var seedEmployers string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Create the reviews, jobs and employee tables and their indexes. Safe to run repeatedly.

With --seed-employers, headcount rows are then loaded from a CSV file with the
header company_id,employee_count,follower_count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL environment variable is required")
			}

			// Parse the seed file before touching the database so a bad file changes nothing.
			var employers []types.Employer
			if seedEmployers != "" {
				f, err := os.Open(seedEmployers)
				if err != nil {
					return fmt.Errorf("failed to open employer seed file: %w", err)
				}
				employers, err = readEmployerSeed(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", seedEmployers, err)
				}
			}

			database, err := db.Connect(cmd.Context(), a.cfg.Database.URL, a.cfg.Database.MaxConns)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.log.Info("Schema applied")

			if len(employers) == 0 {
				return nil
			}
			n, err := seedEmployerRows(cmd.Context(), database, employers)
			if err != nil {
				return err
			}
			a.log.WithField("rows", n).Info("Employers seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&seedEmployers, "seed-employers", "", "CSV file of employer headcount rows to insert after migrating")
	return cmd
}

var employerSeedHeader = []string{"company_id", "employee_count", "follower_count"}

// readEmployerSeed parses a headcount CSV. follower_count may be empty.
func readEmployerSeed(r io.Reader) ([]types.Employer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(employerSeedHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("employer seed is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read employer seed header: %w", err)
	}
	for i, want := range employerSeedHeader {
		if strings.TrimSpace(header[i]) != want {
			return nil, fmt.Errorf("employer seed column %d is %q, want %q", i+1, header[i], want)
		}
	}

	var employers []types.Employer
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return employers, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read employer seed: %w", err)
		}

		var e types.Employer
		if e.CompanyID, err = parseSeedInt(rec[0]); err != nil || e.CompanyID <= 0 {
			return nil, fmt.Errorf("line %d: invalid company_id %q", line, rec[0])
		}
		if e.EmployeeCount, err = parseSeedInt(rec[1]); err != nil || e.EmployeeCount < 0 {
			return nil, fmt.Errorf("line %d: invalid employee_count %q", line, rec[1])
		}
		if e.FollowerCount, err = parseSeedInt(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: invalid follower_count %q", line, rec[2])
		}
		employers = append(employers, e)
	}
}

func parseSeedInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// seedEmployerRows inserts rows in order and stops at the first failure.
func seedEmployerRows(ctx context.Context, store employerInserter, employers []types.Employer) (int, error) {
	for i, e := range employers {
		if err := store.CreateEmployer(ctx, e); err != nil {
			return i, fmt.Errorf("failed to seed employer %d: %w", e.CompanyID, err)
		}
	}
	return len(employers), nil
}
