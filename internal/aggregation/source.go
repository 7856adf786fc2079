// Package aggregation computes ranked summaries over job postings and reviews pulled
// from a paginated data source.
package aggregation

import (
	"context"

	"github.com/jonathan/jobstats/internal/types"
)

// Source is the read-only fetch contract the engine consumes. Paginated calls must
// return rows in a stable order for growing offsets.
type Source interface {
	FetchReviewsPage(ctx context.Context, limit, offset int) ([]types.Review, error)
	FetchEmployers(ctx context.Context) ([]types.Employer, error)
	FetchJobsPageByEmployer(ctx context.Context, companyID int64, limit, offset int) ([]types.JobPosting, error)
	FetchReviewsByTitleAndLocation(ctx context.Context, title, location string) ([]types.Review, error)
	FetchJobsByTitle(ctx context.Context, title string) ([]types.JobPosting, error)
	FetchJobsByTitleAndLocation(ctx context.Context, title, location string) ([]types.JobPosting, error)
}
