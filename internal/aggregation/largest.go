package aggregation

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobstats/internal/pagination"
	"github.com/jonathan/jobstats/internal/types"
)

// EmployerJobsPage fetches one page of a single employer's postings.
type EmployerJobsPage func(ctx context.Context, companyID int64, offset, limit int) ([]types.JobPosting, error)

// SelectLargest picks up to n distinct employers by headcount descending, ties by
// company id ascending. A company with several headcount rows is ranked by its largest
// one. Company id 0 is treated as unknown and skipped.
func SelectLargest(employers []types.Employer, n int) []types.Employer {
	candidates := make([]types.Employer, 0, len(employers))
	for _, emp := range employers {
		if emp.CompanyID != 0 {
			candidates = append(candidates, emp)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].EmployeeCount != candidates[j].EmployeeCount {
			return candidates[i].EmployeeCount > candidates[j].EmployeeCount
		}
		return candidates[i].CompanyID < candidates[j].CompanyID
	})

	if n < 0 {
		n = 0
	}
	seen := make(map[int64]bool, n)
	selected := make([]types.Employer, 0, n)
	for _, emp := range candidates {
		if len(selected) == n {
			break
		}
		if seen[emp.CompanyID] {
			continue
		}
		seen[emp.CompanyID] = true
		selected = append(selected, emp)
	}
	return selected
}

// LargestEmployerExpander drains every posting of the biggest employers.
type LargestEmployerExpander struct {
	fetchPage   EmployerJobsPage
	top         int
	pageSize    int
	concurrency int
}

// NewLargestEmployerExpander builds an expander over the top employers. Each employer is
// paged independently with pageSize rows per call.
func NewLargestEmployerExpander(fetchPage EmployerJobsPage, top, pageSize, concurrency int) *LargestEmployerExpander {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LargestEmployerExpander{
		fetchPage:   fetchPage,
		top:         top,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Expand returns the concatenated postings of the selected employers, ordered by
// employer rank and then by page order within each employer.
func (x *LargestEmployerExpander) Expand(ctx context.Context, employers []types.Employer) ([]types.JobPosting, error) {
	selected := SelectLargest(employers, x.top)
	perEmployer := make([][]types.JobPosting, len(selected))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(x.concurrency)

	for i, emp := range selected {
		g.Go(func() error {
			jobs, err := pagination.Collect(gCtx, x.pageSize, func(ctx context.Context, offset, limit int) ([]types.JobPosting, error) {
				return x.fetchPage(ctx, emp.CompanyID, offset, limit)
			})
			if err != nil {
				return err
			}
			perEmployer[i] = jobs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, jobs := range perEmployer {
		total += len(jobs)
	}
	out := make([]types.JobPosting, 0, total)
	for _, jobs := range perEmployer {
		out = append(out, jobs...)
	}
	return out, nil
}
