package aggregation

import (
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/jobstats/internal/pagination"
	"github.com/jonathan/jobstats/internal/types"
)

const tracerName = "github.com/jonathan/jobstats/internal/aggregation"

// Operation names used for logs, spans and metrics.
const (
	OpBestEmployers        = "best_employers"
	OpBestCities           = "best_cities"
	OpJobsWithRating       = "jobs_with_rating"
	OpLargestEmployersJobs = "largest_employers_jobs"
	OpAverageSalary        = "average_salary"
)

// Recorder receives per-operation measurements. metrics.Metrics satisfies it.
type Recorder interface {
	ObserveOperation(operation string, elapsed time.Duration, err error)
	ObservePages(operation string, pages int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, time.Duration, error) {}
func (nopRecorder) ObservePages(string, int)                      {}

// Options tunes the engine. Zero fields fall back to DefaultOptions.
type Options struct {
	PageSize               int
	CallTimeout            time.Duration
	CorrelationConcurrency int
	ExpansionConcurrency   int
	CorrelationPolicy      CorrelationPolicy
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		PageSize:               pagination.DefaultPageSize,
		CallTimeout:            10 * time.Second,
		CorrelationConcurrency: 8,
		ExpansionConcurrency:   5,
		CorrelationPolicy:      FailFast,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.CorrelationConcurrency <= 0 {
		o.CorrelationConcurrency = d.CorrelationConcurrency
	}
	if o.ExpansionConcurrency <= 0 {
		o.ExpansionConcurrency = d.ExpansionConcurrency
	}
	return o
}

// Engine answers the ranking queries. It keeps no state between calls, so one Engine
// can serve concurrent requests.
type Engine struct {
	source   Source
	opts     Options
	log      logrus.FieldLogger
	recorder Recorder
	tracer   trace.Tracer
}

// NewEngine wires an engine over source. A nil logger discards output and a nil
// recorder drops measurements.
func NewEngine(source Source, opts Options, log logrus.FieldLogger, recorder Recorder) (*Engine, error) {
	if source == nil {
		return nil, errors.New("aggregation: source is required")
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Engine{
		source:   source,
		opts:     opts.withDefaults(),
		log:      log,
		recorder: recorder,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Options returns the effective tuning after defaults.
func (e *Engine) Options() Options { return e.opts }

// BestEmployers ranks firms by the mean of five per-firm dimension averages and
// returns the top five.
func (e *Engine) BestEmployers(ctx context.Context) (out []types.CompanyRating, err error) {
	ctx, finish := e.begin(ctx, OpBestEmployers)
	defer func() { finish(err) }()

	reviews, err := e.allReviews(ctx, OpBestEmployers)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		e.log.WithField("operation", OpBestEmployers).Debug("no reviews available")
	}

	groups := GroupBy(reviews, firmKey)
	aggs := make([]Aggregate, 0, len(groups.Keys))
	for _, firm := range groups.Keys {
		aggs = append(aggs, firmAggregate(firm, groups.Members[firm]))
	}

	top := TopK(aggs, BestEmployersK)
	out = make([]types.CompanyRating, 0, len(top))
	for _, agg := range top {
		out = append(out, types.CompanyRating{
			Firm:               agg.Key,
			OverallRating:      int(math.Round(agg.Means[0])),
			WorkLifeBalance:    agg.Means[1],
			CultureValues:      agg.Means[2],
			DiversityInclusion: agg.Means[3],
			CareerOpp:          agg.Means[4],
			ReviewCount:        agg.Count,
		})
	}
	return out, nil
}

// firmAggregate averages the five employer dimensions with zeros counted.
func firmAggregate(firm string, reviews []types.Review) Aggregate {
	dims := [5][]float64{}
	for _, r := range reviews {
		dims[0] = append(dims[0], r.OverallRating)
		dims[1] = append(dims[1], r.WorkLifeBalance)
		dims[2] = append(dims[2], r.CultureValues)
		dims[3] = append(dims[3], r.DiversityInclusion)
		dims[4] = append(dims[4], r.CareerOpp)
	}
	means := make([]float64, len(dims))
	for i, values := range dims {
		means[i] = MeanIncludingZero(values)
	}
	return NewAggregate(firm, len(reviews), means...)
}

// BestCities ranks trimmed review locations by mean per-review score and returns the
// top ten.
func (e *Engine) BestCities(ctx context.Context) (out []types.CityRating, err error) {
	ctx, finish := e.begin(ctx, OpBestCities)
	defer func() { finish(err) }()

	reviews, err := e.allReviews(ctx, OpBestCities)
	if err != nil {
		return nil, err
	}

	groups := GroupBy(reviews, cityKey)
	aggs := make([]Aggregate, 0, len(groups.Keys))
	for _, city := range groups.Keys {
		members := groups.Members[city]
		aggs = append(aggs, NewAggregate(city, len(members), meanOfReviewMeans(members)))
	}

	top := TopK(aggs, BestCitiesK)
	out = make([]types.CityRating, 0, len(top))
	for _, agg := range top {
		out = append(out, types.CityRating{
			City:          agg.Key,
			AverageRating: agg.Score,
			ReviewCount:   agg.Count,
		})
	}
	return out, nil
}

// JobsWithRating returns postings for the title and city, each carrying a rating
// derived from matching reviews.
func (e *Engine) JobsWithRating(ctx context.Context, title, city string) (out []types.JobRating, err error) {
	ctx, finish := e.begin(ctx, OpJobsWithRating, attribute.String("title", title), attribute.String("city", city))
	defer func() { finish(err) }()

	postings, err := withDeadline(ctx, e.opts.CallTimeout, "FetchJobsByTitleAndLocation", func(ctx context.Context) ([]types.JobPosting, error) {
		return e.source.FetchJobsByTitleAndLocation(ctx, title, city)
	})
	if err != nil {
		return nil, err
	}

	correlator := NewRatingCorrelator(e.reviewLookup, e.opts.CorrelationConcurrency, e.opts.CorrelationPolicy, e.log)
	return correlator.Rate(ctx, postings)
}

func (e *Engine) reviewLookup(ctx context.Context, title, location string) ([]types.Review, error) {
	return withDeadline(ctx, e.opts.CallTimeout, "FetchReviewsByTitleAndLocation", func(ctx context.Context) ([]types.Review, error) {
		return e.source.FetchReviewsByTitleAndLocation(ctx, title, location)
	})
}

// LargestEmployersJobs returns every posting of the five employers with the largest
// headcount.
func (e *Engine) LargestEmployersJobs(ctx context.Context) (out []types.JobPosting, err error) {
	ctx, finish := e.begin(ctx, OpLargestEmployersJobs)
	defer func() { finish(err) }()

	employers, err := withDeadline(ctx, e.opts.CallTimeout, "FetchEmployers", e.source.FetchEmployers)
	if err != nil {
		return nil, err
	}

	var pages atomic.Int64
	expander := NewLargestEmployerExpander(func(ctx context.Context, companyID int64, offset, limit int) ([]types.JobPosting, error) {
		pages.Add(1)
		return withDeadline(ctx, e.opts.CallTimeout, "FetchJobsPageByEmployer", func(ctx context.Context) ([]types.JobPosting, error) {
			return e.source.FetchJobsPageByEmployer(ctx, companyID, limit, offset)
		})
	}, LargestEmployersN, e.opts.PageSize, e.opts.ExpansionConcurrency)

	out, err = expander.Expand(ctx, employers)
	e.recorder.ObservePages(OpLargestEmployersJobs, int(pages.Load()))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AverageSalary is the mean normalized salary over postings whose title equals title
// exactly. It is 0 when nothing matches.
func (e *Engine) AverageSalary(ctx context.Context, title string) (avg float64, err error) {
	ctx, finish := e.begin(ctx, OpAverageSalary, attribute.String("title", title))
	defer func() { finish(err) }()

	postings, err := withDeadline(ctx, e.opts.CallTimeout, "FetchJobsByTitle", func(ctx context.Context) ([]types.JobPosting, error) {
		return e.source.FetchJobsByTitle(ctx, title)
	})
	if err != nil {
		return 0, err
	}

	salaries := make([]float64, 0, len(postings))
	for _, p := range postings {
		if p.Title == title {
			salaries = append(salaries, p.NormalizedSalary)
		}
	}
	return MeanIncludingZero(salaries), nil
}

// allReviews drains the review table page by page.
func (e *Engine) allReviews(ctx context.Context, op string) ([]types.Review, error) {
	var pages int
	reviews, err := pagination.Collect(ctx, e.opts.PageSize, func(ctx context.Context, offset, limit int) ([]types.Review, error) {
		pages++
		return withDeadline(ctx, e.opts.CallTimeout, "FetchReviewsPage", func(ctx context.Context) ([]types.Review, error) {
			return e.source.FetchReviewsPage(ctx, limit, offset)
		})
	})
	e.recorder.ObservePages(op, pages)
	e.log.WithFields(logrus.Fields{
		"operation": op,
		"pages":     pages,
		"reviews":   len(reviews),
	}).Debug("review traversal finished")
	return reviews, err
}

// begin opens a span for op and returns a func that closes it and records the outcome.
func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "aggregation."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		elapsed := time.Since(start)
		e.recorder.ObserveOperation(op, elapsed, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.WithError(err).WithFields(logrus.Fields{
				"operation": op,
				"elapsed":   elapsed.String(),
			}).Error("aggregation failed")
		}
		span.End()
	}
}

// withDeadline runs one remote call under its own timeout and tags failures as
// upstream errors.
func withDeadline[T any](ctx context.Context, timeout time.Duration, op string, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := call(callCtx)
	if err != nil {
		var zero T
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			return zero, err
		}
		return zero, &UpstreamError{Op: op, Err: err}
	}
	return v, nil
}
