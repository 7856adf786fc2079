package db

import (
	"context"
	"fmt"

	"github.com/jonathan/jobstats/internal/types"
)

// ListEmployers returns every headcount row. A company may appear more than once when
// it was sampled at several times.
func (db *DB) ListEmployers(ctx context.Context) ([]types.Employer, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT COALESCE(company_id, 0), COALESCE(employee_count, 0), COALESCE(follower_count, 0)
		 FROM employee
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employers: %w", err)
	}
	defer rows.Close()

	employers := []types.Employer{}
	for rows.Next() {
		var e types.Employer
		if err := rows.Scan(&e.CompanyID, &e.EmployeeCount, &e.FollowerCount); err != nil {
			return nil, fmt.Errorf("failed to scan employer: %w", err)
		}
		employers = append(employers, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read employers: %w", err)
	}
	return employers, nil
}

// CreateEmployer inserts one headcount row.
func (db *DB) CreateEmployer(ctx context.Context, e types.Employer) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO employee (company_id, employee_count, follower_count) VALUES ($1, $2, $3)`,
		e.CompanyID, e.EmployeeCount, e.FollowerCount,
	)
	if err != nil {
		return fmt.Errorf("failed to create employer: %w", err)
	}
	return nil
}
