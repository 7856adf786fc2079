package dataaccess

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/jonathan/jobstats/internal/aggregation"
	"github.com/jonathan/jobstats/internal/db"
	"github.com/jonathan/jobstats/internal/types"
)

// ErrNotFound is returned when a write targets a row the service does not have.
var ErrNotFound = db.ErrNotFound

// CallRecorder receives one measurement per RPC. metrics.Metrics satisfies it.
type CallRecorder interface {
	ObserveUpstreamCall(method, code string, elapsed time.Duration)
}

// ClientOptions configures Dial.
type ClientOptions struct {
	// RateLimit caps calls per second; 0 disables throttling.
	RateLimit float64
	RateBurst int
	Recorder  CallRecorder
	// DialOptions are appended after the defaults. Tests pass a bufconn dialer here.
	DialOptions []grpc.DialOption
}

// Client talks to the data access service. It satisfies aggregation.Source.
type Client struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	limiter *rate.Limiter
}

var _ aggregation.Source = (*Client)(nil)

// Dial opens a client connection to target. The connection is lazy; the first call
// establishes it.
func Dial(target string, opts ClientOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	if opts.Recorder != nil {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(MetricsInterceptor(opts.Recorder)))
	}
	dialOpts = append(dialOpts, opts.DialOptions...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create data access client for %s: %w", target, err)
	}

	c := NewClient(conn, newLimiter(opts.RateLimit, opts.RateBurst))
	c.closer = conn.Close
	return c, nil
}

// NewClient wraps an existing connection. A nil limiter disables throttling.
func NewClient(conn grpc.ClientConnInterface, limiter *rate.Limiter) *Client {
	return &Client{conn: conn, limiter: limiter, closer: func() error { return nil }}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Close releases the connection when the client owns it.
func (c *Client) Close() error {
	return c.closer()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", method, err)
		}
	}
	if err := c.conn.Invoke(ctx, fullMethod(method), req, resp, grpc.CallContentSubtype(CodecName)); err != nil {
		return fromStatus(method, err)
	}
	return nil
}

// fromStatus turns gRPC statuses back into the package's typed errors. Codes without
// a typed counterpart pass through unchanged.
func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		verr := &types.ValidationError{Field: "request", Message: st.Message(), Err: err}
		for _, d := range st.Details() {
			if br, ok := d.(*errdetails.BadRequest); ok && len(br.GetFieldViolations()) > 0 {
				fv := br.GetFieldViolations()[0]
				verr.Field = fv.GetField()
				verr.Message = fv.GetDescription()
			}
		}
		return verr
	case codes.NotFound:
		return fmt.Errorf("%s: %s: %w", method, st.Message(), ErrNotFound)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w", method, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("%s: %w", method, context.Canceled)
	}
	return fmt.Errorf("%s: %w", method, err)
}

// FetchReviewsPage implements aggregation.Source.
func (c *Client) FetchReviewsPage(ctx context.Context, limit, offset int) ([]types.Review, error) {
	var resp ReviewsResponse
	if err := c.invoke(ctx, MethodFetchReviewsPage, &PageRequest{Limit: limit, Offset: offset}, &resp); err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}

// FetchEmployers implements aggregation.Source.
func (c *Client) FetchEmployers(ctx context.Context) ([]types.Employer, error) {
	var resp EmployersResponse
	if err := c.invoke(ctx, MethodFetchEmployers, &EmployersRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Employers, nil
}

// FetchJobsPageByEmployer implements aggregation.Source.
func (c *Client) FetchJobsPageByEmployer(ctx context.Context, companyID int64, limit, offset int) ([]types.JobPosting, error) {
	var resp JobsResponse
	req := &EmployerJobsRequest{CompanyID: companyID, Limit: limit, Offset: offset}
	if err := c.invoke(ctx, MethodFetchJobsPageByEmployer, req, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// FetchReviewsByTitleAndLocation implements aggregation.Source.
func (c *Client) FetchReviewsByTitleAndLocation(ctx context.Context, title, location string) ([]types.Review, error) {
	var resp ReviewsResponse
	req := &TitleLocationRequest{Title: title, Location: location}
	if err := c.invoke(ctx, MethodFetchReviewsByTitleAndLocation, req, &resp); err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}

// FetchJobsByTitle implements aggregation.Source.
func (c *Client) FetchJobsByTitle(ctx context.Context, title string) ([]types.JobPosting, error) {
	var resp JobsResponse
	if err := c.invoke(ctx, MethodFetchJobsByTitle, &TitleRequest{Title: title}, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// FetchJobsByTitleAndLocation implements aggregation.Source.
func (c *Client) FetchJobsByTitleAndLocation(ctx context.Context, title, location string) ([]types.JobPosting, error) {
	var resp JobsResponse
	req := &TitleLocationRequest{Title: title, Location: location}
	if err := c.invoke(ctx, MethodFetchJobsByTitleAndLocation, req, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// CreateReview stores a review and returns its id.
func (c *Client) CreateReview(ctx context.Context, req *types.CreateReviewRequest) (int64, error) {
	var resp CreatedResponse
	if err := c.invoke(ctx, MethodCreateReview, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// AddJob stores a job posting and returns its id.
func (c *Client) AddJob(ctx context.Context, req *types.AddJobRequest) (int64, error) {
	var resp CreatedResponse
	if err := c.invoke(ctx, MethodAddJob, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateReview changes an existing review. A missing id yields ErrNotFound.
func (c *Client) UpdateReview(ctx context.Context, req *types.UpdateReviewRequest) error {
	var resp UpdateReviewResponse
	return c.invoke(ctx, MethodUpdateReview, req, &resp)
}

// MetricsInterceptor records every unary call's method and status code.
func MetricsInterceptor(rec CallRecorder) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		rec.ObserveUpstreamCall(shortMethod(method), status.Code(err).String(), time.Since(start))
		return err
	}
}

func shortMethod(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}
