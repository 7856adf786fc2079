package dataaccess

import "github.com/jonathan/jobstats/internal/types"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobstats.dataaccess.v1.DataAccess"

// RPC method names.
const (
	MethodFetchReviewsPage               = "FetchReviewsPage"
	MethodFetchEmployers                 = "FetchEmployers"
	MethodFetchJobsPageByEmployer        = "FetchJobsPageByEmployer"
	MethodFetchReviewsByTitleAndLocation = "FetchReviewsByTitleAndLocation"
	MethodFetchJobsByTitle               = "FetchJobsByTitle"
	MethodFetchJobsByTitleAndLocation    = "FetchJobsByTitleAndLocation"
	MethodCreateReview                   = "CreateReview"
	MethodAddJob                         = "AddJob"
	MethodUpdateReview                   = "UpdateReview"
)

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// PageRequest selects one page of reviews.
type PageRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ReviewsResponse carries review rows.
type ReviewsResponse struct {
	Reviews []types.Review `json:"reviews"`
}

// EmployersRequest has no fields.
type EmployersRequest struct{}

// EmployersResponse carries headcount rows.
type EmployersResponse struct {
	Employers []types.Employer `json:"employers"`
}

// EmployerJobsRequest selects one page of a single employer's postings.
type EmployerJobsRequest struct {
	CompanyID int64 `json:"company_id"`
	Limit     int   `json:"limit"`
	Offset    int   `json:"offset"`
}

// TitleLocationRequest filters by job title and location.
type TitleLocationRequest struct {
	Title    string `json:"title"`
	Location string `json:"location"`
}

// TitleRequest filters by job title.
type TitleRequest struct {
	Title string `json:"title"`
}

// JobsResponse carries job postings.
type JobsResponse struct {
	Jobs []types.JobPosting `json:"jobs"`
}

// CreatedResponse returns the id of an inserted row.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// UpdateReviewResponse reports the outcome of an update.
type UpdateReviewResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
