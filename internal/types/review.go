// Package types provides type definitions for the records and results exchanged between
// the data-access service, the aggregation engine and the HTTP front door.
package types

// RatingDimensions is the number of numeric rating axes carried by a review.
const RatingDimensions = 7

// Review is a single employee review row. Rating dimensions use a 1-5 scale where 0 means
// the reviewer left the dimension blank.
type Review struct {
	ID                 int64   `json:"id"`
	Firm               string  `json:"firm"`
	JobTitle           string  `json:"job_title"`
	Location           string  `json:"location"`
	Current            string  `json:"current"`
	OverallRating      float64 `json:"overall_rating"`
	WorkLifeBalance    float64 `json:"work_life_balance"`
	CultureValues      float64 `json:"culture_values"`
	DiversityInclusion float64 `json:"diversity_inclusion"`
	CareerOpp          float64 `json:"career_opp"`
	CompBenefits       float64 `json:"comp_benefits"`
	SeniorMgmt         float64 `json:"senior_mgmt"`
	Recommend          string  `json:"recommend,omitempty"`
	CEOApproval        string  `json:"ceo_approv,omitempty"`
	Outlook            string  `json:"outlook,omitempty"`
	Headline           string  `json:"headline,omitempty"`
	Pros               string  `json:"pros,omitempty"`
	Cons               string  `json:"cons,omitempty"`
}

// Ratings returns the seven rating dimensions in a fixed order:
// overall, work-life balance, culture, diversity, career, compensation, senior management.
func (r Review) Ratings() [RatingDimensions]float64 {
	return [RatingDimensions]float64{
		r.OverallRating,
		r.WorkLifeBalance,
		r.CultureValues,
		r.DiversityInclusion,
		r.CareerOpp,
		r.CompBenefits,
		r.SeniorMgmt,
	}
}

// CompanyRating is one row of the best-employers ranking.
type CompanyRating struct {
	Firm               string  `json:"firm"`
	OverallRating      int     `json:"overall_rating"`
	WorkLifeBalance    float64 `json:"work_life_balance"`
	CultureValues      float64 `json:"culture_values"`
	DiversityInclusion float64 `json:"diversity_inclusion"`
	CareerOpp          float64 `json:"career_opp"`
	ReviewCount        int     `json:"review_count"`
}

// CityRating is one row of the best-cities ranking.
type CityRating struct {
	City          string  `json:"city"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}
