package aggregation

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobstats/internal/types"
)

// CorrelationPolicy decides what a failed per-posting review lookup does to the batch.
type CorrelationPolicy int

const (
	// FailFast aborts the whole batch on the first failed lookup.
	FailFast CorrelationPolicy = iota
	// ZeroOnError logs the failure and rates that posting 0.
	ZeroOnError
)

func (p CorrelationPolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case ZeroOnError:
		return "zero_on_error"
	default:
		return fmt.Sprintf("CorrelationPolicy(%d)", int(p))
	}
}

// ParseCorrelationPolicy maps a config value to a policy. Empty selects FailFast.
func ParseCorrelationPolicy(s string) (CorrelationPolicy, error) {
	switch s {
	case "", "fail_fast":
		return FailFast, nil
	case "zero_on_error":
		return ZeroOnError, nil
	default:
		return FailFast, fmt.Errorf("unknown correlation policy %q", s)
	}
}

// ReviewLookup fetches the reviews recorded for one (title, location) pair.
type ReviewLookup func(ctx context.Context, title, location string) ([]types.Review, error)

// RatingCorrelator attaches a review-derived rating to each job posting.
type RatingCorrelator struct {
	lookup      ReviewLookup
	concurrency int
	policy      CorrelationPolicy
	log         logrus.FieldLogger
}

// NewRatingCorrelator builds a correlator running at most concurrency lookups at once.
// A concurrency below 1 runs lookups one at a time.
func NewRatingCorrelator(lookup ReviewLookup, concurrency int, policy CorrelationPolicy, log logrus.FieldLogger) *RatingCorrelator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RatingCorrelator{
		lookup:      lookup,
		concurrency: concurrency,
		policy:      policy,
		log:         log,
	}
}

// Rate returns one JobRating per posting in input order. A posting's rating is the
// floor of the mean per-review score over reviews whose trimmed title and location
// equal the posting's, or 0 when none match.
func (c *RatingCorrelator) Rate(ctx context.Context, postings []types.JobPosting) ([]types.JobRating, error) {
	results := make([]types.JobRating, len(postings))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, posting := range postings {
		g.Go(func() error {
			rating, err := c.ratePosting(gCtx, posting)
			if err != nil {
				if c.policy == FailFast || ctx.Err() != nil {
					return err
				}
				c.log.WithError(err).WithFields(logrus.Fields{
					"title":    posting.Title,
					"location": posting.Location,
				}).Warn("review lookup failed, rating posting 0")
				rating = 0
			}
			results[i] = types.JobRating{Job: posting, Rating: rating}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *RatingCorrelator) ratePosting(ctx context.Context, posting types.JobPosting) (int, error) {
	reviews, err := c.lookup(ctx, posting.Title, posting.Location)
	if err != nil {
		return 0, err
	}

	groups := GroupBy(reviews, reviewCorrelationKey)
	matched := groups.Members[correlationKey(posting.Title, posting.Location)]
	if len(matched) == 0 {
		return 0, nil
	}
	return int(math.Floor(meanOfReviewMeans(matched))), nil
}
