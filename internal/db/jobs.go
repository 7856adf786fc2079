package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobstats/internal/types"
)

// -----------------------------------------------------------------------------
// Job Posting Methods
// -----------------------------------------------------------------------------

const jobColumns = `job_id, company, title, description, location,
	COALESCE(max_salary, 0), COALESCE(med_salary, 0), COALESCE(min_salary, 0),
	COALESCE(normalized_salary, 0), pay_period, COALESCE(company_id, 0), COALESCE(views, 0),
	formatted_work_type, remote_allowed, job_posting_url`

// jobsByTitleAndLocation compares trimmed columns so padded imports still match.
const jobsByTitleAndLocation = `SELECT ` + jobColumns + ` FROM jobs
	WHERE TRIM(title) = $1 AND TRIM(location) = $2
	ORDER BY job_id`

func scanJob(row pgx.Row) (types.JobPosting, error) {
	var j types.JobPosting
	var jobID int64
	err := row.Scan(&jobID, &j.CompanyName, &j.Title, &j.Description, &j.Location,
		&j.MaxSalary, &j.MedSalary, &j.MinSalary,
		&j.NormalizedSalary, &j.PayPeriod, &j.CompanyID, &j.Views,
		&j.FormattedWorkType, &j.RemoteAllowed, &j.JobPostingURL)
	j.JobID = strconv.FormatInt(jobID, 10)
	return j, err
}

func collectJobs(rows pgx.Rows) ([]types.JobPosting, error) {
	defer rows.Close()
	jobs := []types.JobPosting{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job posting: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job postings: %w", err)
	}
	return jobs, nil
}

// ListJobsByTitle returns every posting with exactly this title.
func (db *DB) ListJobsByTitle(ctx context.Context, title string) ([]types.JobPosting, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE title = $1 ORDER BY job_id`,
		title,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by title: %w", err)
	}
	return collectJobs(rows)
}

// ListJobsByTitleAndLocation returns postings whose trimmed title and location equal
// the trimmed arguments.
func (db *DB) ListJobsByTitleAndLocation(ctx context.Context, title, location string) ([]types.JobPosting, error) {
	rows, err := db.pool.Query(ctx, jobsByTitleAndLocation,
		strings.TrimSpace(title), strings.TrimSpace(location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by title and location: %w", err)
	}
	return collectJobs(rows)
}

// ListJobsPageByCompany returns one page of a company's postings ordered by job id.
func (db *DB) ListJobsPageByCompany(ctx context.Context, companyID int64, limit, offset int) ([]types.JobPosting, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE company_id = $1 ORDER BY job_id LIMIT $2 OFFSET $3`,
		companyID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for company %d: %w", companyID, err)
	}
	return collectJobs(rows)
}

// CreateJob inserts a posting and returns its job id.
func (db *DB) CreateJob(ctx context.Context, j types.JobPosting) (int64, error) {
	var companyID *int64
	if j.CompanyID != 0 {
		companyID = &j.CompanyID
	}

	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (company, title, description, location, max_salary, med_salary,
		                   min_salary, normalized_salary, pay_period, company_id, views,
		                   formatted_work_type, remote_allowed, job_posting_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING job_id`,
		j.CompanyName, j.Title, j.Description, j.Location, j.MaxSalary, j.MedSalary,
		j.MinSalary, j.NormalizedSalary, j.PayPeriod, companyID, j.Views,
		j.FormattedWorkType, j.RemoteAllowed, j.JobPostingURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create job posting: %w", err)
	}
	return id, nil
}
