package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/jobstats/internal/db"
	"github.com/jonathan/jobstats/internal/types"
)

// MaxPageSize caps the limit a single page request may ask for.
const MaxPageSize = 5000

// Store is the persistence the service reads and writes. *db.DB satisfies it.
type Store interface {
	ListReviewsPage(ctx context.Context, limit, offset int) ([]types.Review, error)
	ListReviewsByTitleAndLocation(ctx context.Context, title, location string) ([]types.Review, error)
	ListEmployers(ctx context.Context) ([]types.Employer, error)
	ListJobsPageByCompany(ctx context.Context, companyID int64, limit, offset int) ([]types.JobPosting, error)
	ListJobsByTitle(ctx context.Context, title string) ([]types.JobPosting, error)
	ListJobsByTitleAndLocation(ctx context.Context, title, location string) ([]types.JobPosting, error)
	CreateReview(ctx context.Context, r types.Review) (int64, error)
	CreateJob(ctx context.Context, j types.JobPosting) (int64, error)
	UpdateReview(ctx context.Context, req types.UpdateReviewRequest) error
}

// DataAccessServer is the RPC surface served under ServiceName.
type DataAccessServer interface {
	FetchReviewsPage(context.Context, *PageRequest) (*ReviewsResponse, error)
	FetchEmployers(context.Context, *EmployersRequest) (*EmployersResponse, error)
	FetchJobsPageByEmployer(context.Context, *EmployerJobsRequest) (*JobsResponse, error)
	FetchReviewsByTitleAndLocation(context.Context, *TitleLocationRequest) (*ReviewsResponse, error)
	FetchJobsByTitle(context.Context, *TitleRequest) (*JobsResponse, error)
	FetchJobsByTitleAndLocation(context.Context, *TitleLocationRequest) (*JobsResponse, error)
	CreateReview(context.Context, *types.CreateReviewRequest) (*CreatedResponse, error)
	AddJob(context.Context, *types.AddJobRequest) (*CreatedResponse, error)
	UpdateReview(context.Context, *types.UpdateReviewRequest) (*UpdateReviewResponse, error)
}

// Server implements DataAccessServer over a Store.
type Server struct {
	store Store
	log   logrus.FieldLogger
}

// NewServer creates a data access service backed by store.
func NewServer(store Store, log logrus.FieldLogger) *Server {
	return &Server{store: store, log: log.WithField("component", "dataaccess")}
}

// Register attaches the service to a gRPC server.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

func checkPage(limit, offset int) error {
	switch {
	case limit < 1:
		return invalidArgument("limit", "must be at least 1")
	case limit > MaxPageSize:
		return invalidArgument("limit", fmt.Sprintf("must be at most %d", MaxPageSize))
	case offset < 0:
		return invalidArgument("offset", "must not be negative")
	}
	return nil
}

// FetchReviewsPage returns one page of reviews ordered by id.
func (s *Server) FetchReviewsPage(ctx context.Context, req *PageRequest) (*ReviewsResponse, error) {
	if err := checkPage(req.Limit, req.Offset); err != nil {
		return nil, err
	}
	reviews, err := s.store.ListReviewsPage(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, s.toStatus(MethodFetchReviewsPage, err)
	}
	return &ReviewsResponse{Reviews: reviews}, nil
}

// FetchEmployers returns every headcount row.
func (s *Server) FetchEmployers(ctx context.Context, _ *EmployersRequest) (*EmployersResponse, error) {
	employers, err := s.store.ListEmployers(ctx)
	if err != nil {
		return nil, s.toStatus(MethodFetchEmployers, err)
	}
	return &EmployersResponse{Employers: employers}, nil
}

// FetchJobsPageByEmployer returns one page of an employer's postings.
func (s *Server) FetchJobsPageByEmployer(ctx context.Context, req *EmployerJobsRequest) (*JobsResponse, error) {
	if err := checkPage(req.Limit, req.Offset); err != nil {
		return nil, err
	}
	jobs, err := s.store.ListJobsPageByCompany(ctx, req.CompanyID, req.Limit, req.Offset)
	if err != nil {
		return nil, s.toStatus(MethodFetchJobsPageByEmployer, err)
	}
	return &JobsResponse{Jobs: jobs}, nil
}

// FetchReviewsByTitleAndLocation returns reviews for one title and location.
func (s *Server) FetchReviewsByTitleAndLocation(ctx context.Context, req *TitleLocationRequest) (*ReviewsResponse, error) {
	reviews, err := s.store.ListReviewsByTitleAndLocation(ctx, req.Title, req.Location)
	if err != nil {
		return nil, s.toStatus(MethodFetchReviewsByTitleAndLocation, err)
	}
	return &ReviewsResponse{Reviews: reviews}, nil
}

// FetchJobsByTitle returns postings with one title.
func (s *Server) FetchJobsByTitle(ctx context.Context, req *TitleRequest) (*JobsResponse, error) {
	jobs, err := s.store.ListJobsByTitle(ctx, req.Title)
	if err != nil {
		return nil, s.toStatus(MethodFetchJobsByTitle, err)
	}
	return &JobsResponse{Jobs: jobs}, nil
}

// FetchJobsByTitleAndLocation returns postings for one title and location.
func (s *Server) FetchJobsByTitleAndLocation(ctx context.Context, req *TitleLocationRequest) (*JobsResponse, error) {
	jobs, err := s.store.ListJobsByTitleAndLocation(ctx, req.Title, req.Location)
	if err != nil {
		return nil, s.toStatus(MethodFetchJobsByTitleAndLocation, err)
	}
	return &JobsResponse{Jobs: jobs}, nil
}

// CreateReview validates and stores a review.
func (s *Server) CreateReview(ctx context.Context, req *types.CreateReviewRequest) (*CreatedResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(MethodCreateReview, err)
	}
	id, err := s.store.CreateReview(ctx, req.Review())
	if err != nil {
		return nil, s.toStatus(MethodCreateReview, err)
	}
	s.log.WithFields(logrus.Fields{"id": id, "firm": req.Firm}).Info("review created")
	return &CreatedResponse{ID: id}, nil
}

// AddJob validates and stores a job posting.
func (s *Server) AddJob(ctx context.Context, req *types.AddJobRequest) (*CreatedResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(MethodAddJob, err)
	}
	id, err := s.store.CreateJob(ctx, req.JobPosting())
	if err != nil {
		return nil, s.toStatus(MethodAddJob, err)
	}
	s.log.WithFields(logrus.Fields{"id": id, "title": req.Title}).Info("job posting created")
	return &CreatedResponse{ID: id}, nil
}

// UpdateReview changes an existing review. A missing id is NotFound.
func (s *Server) UpdateReview(ctx context.Context, req *types.UpdateReviewRequest) (*UpdateReviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, s.toStatus(MethodUpdateReview, err)
	}
	if err := s.store.UpdateReview(ctx, *req); err != nil {
		return nil, s.toStatus(MethodUpdateReview, err)
	}
	return &UpdateReviewResponse{Success: true, Message: "Review updated successfully"}, nil
}

// toStatus maps store and validation errors onto gRPC status codes.
func (s *Server) toStatus(method string, err error) error {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return invalidArgument(verr.Field, verr.Message)
	case errors.Is(err, db.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	s.log.WithError(err).WithField("method", method).Error("store call failed")
	return status.Errorf(codes.Internal, "%s failed", method)
}

// invalidArgument builds an InvalidArgument status carrying the offending field.
func invalidArgument(field, description string) error {
	st := status.New(codes.InvalidArgument, fmt.Sprintf("%s: %s", field, description))
	detailed, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: field, Description: description},
		},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// LoggingInterceptor logs each unary call with its method, code and duration.
func LoggingInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		})
		if err != nil && status.Code(err) == codes.Internal {
			entry.Warn("rpc failed")
		} else {
			entry.Debug("rpc served")
		}
		return resp, err
	}
}

type unaryHandlerFunc = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unary adapts a typed method to the grpc method handler shape.
func unary[Req, Resp any](method string, call func(DataAccessServer, context.Context, *Req) (*Resp, error)) unaryHandlerFunc {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DataAccessServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(DataAccessServer), ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DataAccessServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodFetchReviewsPage, Handler: unary(MethodFetchReviewsPage, DataAccessServer.FetchReviewsPage)},
		{MethodName: MethodFetchEmployers, Handler: unary(MethodFetchEmployers, DataAccessServer.FetchEmployers)},
		{MethodName: MethodFetchJobsPageByEmployer, Handler: unary(MethodFetchJobsPageByEmployer, DataAccessServer.FetchJobsPageByEmployer)},
		{MethodName: MethodFetchReviewsByTitleAndLocation, Handler: unary(MethodFetchReviewsByTitleAndLocation, DataAccessServer.FetchReviewsByTitleAndLocation)},
		{MethodName: MethodFetchJobsByTitle, Handler: unary(MethodFetchJobsByTitle, DataAccessServer.FetchJobsByTitle)},
		{MethodName: MethodFetchJobsByTitleAndLocation, Handler: unary(MethodFetchJobsByTitleAndLocation, DataAccessServer.FetchJobsByTitleAndLocation)},
		{MethodName: MethodCreateReview, Handler: unary(MethodCreateReview, DataAccessServer.CreateReview)},
		{MethodName: MethodAddJob, Handler: unary(MethodAddJob, DataAccessServer.AddJob)},
		{MethodName: MethodUpdateReview, Handler: unary(MethodUpdateReview, DataAccessServer.UpdateReview)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobstats/dataaccess/v1",
}
