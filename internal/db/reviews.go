package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobstats/internal/types"
)

// -----------------------------------------------------------------------------
// Review Methods
// -----------------------------------------------------------------------------

// Nullable rating columns read back as 0, which the averaging treats as "not rated".
const reviewColumns = `id, firm, job_title, current, location,
	COALESCE(overall_rating, 0), COALESCE(work_life_balance, 0), COALESCE(culture_values, 0),
	COALESCE(diversity_inclusion, 0), COALESCE(career_opp, 0), COALESCE(comp_benefits, 0),
	COALESCE(senior_mgmt, 0), recommend, ceo_approv, outlook, headline, pros, cons`

func scanReview(row pgx.Row) (types.Review, error) {
	var r types.Review
	err := row.Scan(&r.ID, &r.Firm, &r.JobTitle, &r.Current, &r.Location,
		&r.OverallRating, &r.WorkLifeBalance, &r.CultureValues,
		&r.DiversityInclusion, &r.CareerOpp, &r.CompBenefits,
		&r.SeniorMgmt, &r.Recommend, &r.CEOApproval, &r.Outlook, &r.Headline, &r.Pros, &r.Cons)
	return r, err
}

func collectReviews(rows pgx.Rows) ([]types.Review, error) {
	defer rows.Close()
	reviews := []types.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}
	return reviews, nil
}

// ListReviewsPage returns up to limit reviews starting at offset, ordered by id so
// consecutive pages neither overlap nor skip rows.
func (db *DB) ListReviewsPage(ctx context.Context, limit, offset int) ([]types.Review, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return collectReviews(rows)
}

// ListReviewsByTitleAndLocation returns reviews whose trimmed job title and location
// equal the trimmed arguments.
func (db *DB) ListReviewsByTitleAndLocation(ctx context.Context, title, location string) ([]types.Review, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE TRIM(job_title) = $1 AND TRIM(location) = $2
		 ORDER BY id`,
		strings.TrimSpace(title), strings.TrimSpace(location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by title and location: %w", err)
	}
	return collectReviews(rows)
}

// CreateReview inserts a review and returns its id.
func (db *DB) CreateReview(ctx context.Context, r types.Review) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO reviews (firm, job_title, current, location, overall_rating,
		                      work_life_balance, culture_values, diversity_inclusion,
		                      career_opp, comp_benefits, senior_mgmt, recommend,
		                      ceo_approv, outlook, headline, pros, cons)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`,
		r.Firm, r.JobTitle, r.Current, r.Location, r.OverallRating,
		r.WorkLifeBalance, r.CultureValues, r.DiversityInclusion,
		r.CareerOpp, r.CompBenefits, r.SeniorMgmt, r.Recommend,
		r.CEOApproval, r.Outlook, r.Headline, r.Pros, r.Cons,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create review: %w", err)
	}
	return id, nil
}

// UpdateReview sets current status, overall rating and headline on one review.
// It returns ErrNotFound when no row has the id.
func (db *DB) UpdateReview(ctx context.Context, req types.UpdateReviewRequest) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE reviews SET current = $1, overall_rating = $2, headline = $3 WHERE id = $4`,
		req.CurrentStatus, req.Rating, req.Headline, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("review %d: %w", req.ID, ErrNotFound)
	}
	return nil
}
