package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError reports the first field that failed request validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// Unwrap returns the underlying validator error.
func (e *ValidationError) Unwrap() error { return e.Err }

// validateStruct runs struct tag validation and converts the first failure into a
// *ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &ValidationError{Field: fe.Field(), Message: msg, Err: err}
	}
	return &ValidationError{Field: "request", Message: err.Error(), Err: err}
}

// CreateReviewRequest is the payload for writing a new review.
type CreateReviewRequest struct {
	Firm               string  `json:"firm" validate:"required"`
	JobTitle           string  `json:"job_title" validate:"required"`
	Location           string  `json:"location" validate:"required"`
	OverallRating      float64 `json:"overall_rating" validate:"required,min=1,max=5"`
	Pros               string  `json:"pros" validate:"required"`
	Cons               string  `json:"cons" validate:"required"`
	Current            string  `json:"current,omitempty"`
	WorkLifeBalance    float64 `json:"work_life_balance,omitempty" validate:"min=0,max=5"`
	CultureValues      float64 `json:"culture_values,omitempty" validate:"min=0,max=5"`
	DiversityInclusion float64 `json:"diversity_inclusion,omitempty" validate:"min=0,max=5"`
	CareerOpp          float64 `json:"career_opp,omitempty" validate:"min=0,max=5"`
	CompBenefits       float64 `json:"comp_benefits,omitempty" validate:"min=0,max=5"`
	SeniorMgmt         float64 `json:"senior_mgmt,omitempty" validate:"min=0,max=5"`
	Recommend          string  `json:"recommend,omitempty"`
	CEOApproval        string  `json:"ceo_approv,omitempty"`
	Outlook            string  `json:"outlook,omitempty"`
	Headline           string  `json:"headline,omitempty"`
}

// Validate validates the CreateReviewRequest using the validator.
func (r *CreateReviewRequest) Validate() error {
	return validateStruct(r)
}

// Review converts the request into a storable review.
func (r *CreateReviewRequest) Review() Review {
	return Review{
		Firm:               r.Firm,
		JobTitle:           r.JobTitle,
		Location:           r.Location,
		Current:            r.Current,
		OverallRating:      r.OverallRating,
		WorkLifeBalance:    r.WorkLifeBalance,
		CultureValues:      r.CultureValues,
		DiversityInclusion: r.DiversityInclusion,
		CareerOpp:          r.CareerOpp,
		CompBenefits:       r.CompBenefits,
		SeniorMgmt:         r.SeniorMgmt,
		Recommend:          r.Recommend,
		CEOApproval:        r.CEOApproval,
		Outlook:            r.Outlook,
		Headline:           r.Headline,
		Pros:               r.Pros,
		Cons:               r.Cons,
	}
}

// AddJobRequest is the payload for adding a job posting.
type AddJobRequest struct {
	Title            string   `json:"title" validate:"required"`
	CompanyName      string   `json:"company_name" validate:"required"`
	Description      string   `json:"description" validate:"required"`
	Location         string   `json:"location" validate:"required"`
	NormalizedSalary *float64 `json:"normalized_salary" validate:"required,gte=0"`
}

// Validate validates the AddJobRequest using the validator.
func (r *AddJobRequest) Validate() error {
	return validateStruct(r)
}

// JobPosting converts the request into a storable posting.
func (r *AddJobRequest) JobPosting() JobPosting {
	job := JobPosting{
		Title:       r.Title,
		CompanyName: r.CompanyName,
		Description: r.Description,
		Location:    r.Location,
	}
	if r.NormalizedSalary != nil {
		job.NormalizedSalary = *r.NormalizedSalary
	}
	return job
}

// UpdateReviewRequest changes the mutable fields of an existing review.
type UpdateReviewRequest struct {
	ID            int64   `json:"id" validate:"required,gt=0"`
	CurrentStatus string  `json:"current_status"`
	Rating        float64 `json:"rating" validate:"min=0,max=5"`
	Headline      string  `json:"headline"`
}

// Validate validates the UpdateReviewRequest using the validator.
func (r *UpdateReviewRequest) Validate() error {
	return validateStruct(r)
}
