package types

// JobPosting is a job listing row.
type JobPosting struct {
	JobID             string  `json:"job_id"`
	CompanyName       string  `json:"company_name"`
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Location          string  `json:"location"`
	MaxSalary         float64 `json:"max_salary"`
	MedSalary         float64 `json:"med_salary"`
	MinSalary         float64 `json:"min_salary"`
	NormalizedSalary  float64 `json:"normalized_salary"`
	PayPeriod         string  `json:"pay_period,omitempty"`
	CompanyID         int64   `json:"company_id"`
	Views             int64   `json:"views"`
	FormattedWorkType string  `json:"formatted_work_type,omitempty"`
	RemoteAllowed     bool    `json:"remote_allowed"`
	JobPostingURL     string  `json:"job_posting_url,omitempty"`
}

// JobRating pairs a posting with the rating derived from reviews for the same title and
// location. Rating is 0 when no correlated reviews exist.
type JobRating struct {
	Job    JobPosting `json:"job"`
	Rating int        `json:"rating"`
}

// Employer is the headcount row for a company.
type Employer struct {
	CompanyID     int64 `json:"company_id"`
	EmployeeCount int64 `json:"employee_count"`
	FollowerCount int64 `json:"follower_count"`
}
