package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/jobstats/internal/types"
)

// RatedJob is one row of the jobsWithRating response.
type RatedJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Views       int64  `json:"views"`
	Rating      int    `json:"rating"`
}

// UpdateReviewBody is the PUT /reviews/{id} payload.
type UpdateReviewBody struct {
	CurrentStatus string  `json:"current_status"`
	Rating        float64 `json:"rating"`
	Headline      string  `json:"headline"`
}

// handleBestCompanies returns the top employers by review composite.
func (s *Server) handleBestCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.engine.BestEmployers(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if companies == nil {
		companies = []types.CompanyRating{}
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"companies": companies})
}

// handleBestCities returns the top cities by mean review rating.
func (s *Server) handleBestCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.engine.BestCities(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if cities == nil {
		cities = []types.CityRating{}
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"cities": cities})
}

// handleJobsWithRating returns postings for a title and city with their review rating.
func (s *Server) handleJobsWithRating(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if title == "" || city == "" {
		s.errorResponse(w, r, http.StatusBadRequest, "Title and city are required")
		return
	}

	rated, err := s.engine.JobsWithRating(r.Context(), title, city)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	jobs := make([]RatedJob, 0, len(rated))
	for _, jr := range rated {
		jobs = append(jobs, RatedJob{
			Title:       jr.Job.Title,
			Company:     jr.Job.CompanyName,
			Description: jr.Job.Description,
			Location:    jr.Job.Location,
			Views:       jr.Job.Views,
			Rating:      jr.Rating,
		})
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"jobs": jobs})
}

// handleLargestCompaniesJobs returns every posting of the largest employers.
func (s *Server) handleLargestCompaniesJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.engine.LargestEmployersJobs(r.Context())
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []types.JobPosting{}
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// handleAverageSalary returns the mean normalized salary for a title.
func (s *Server) handleAverageSalary(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		s.errorResponse(w, r, http.StatusBadRequest, "Title is required")
		return
	}

	avg, err := s.engine.AverageSalary(r.Context(), title)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]float64{"averageSalary": avg})
}

// handleAddJobReview stores a new review.
func (s *Server) handleAddJobReview(w http.ResponseWriter, r *http.Request) {
	var req types.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, r, err)
		return
	}

	id, err := s.writer.CreateReview(r.Context(), &req)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, map[string]any{"success": true, "id": id})
}

// handleAddJob stores a new job posting.
func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req types.AddJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, r, err)
		return
	}

	id, err := s.writer.AddJob(r.Context(), &req)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusCreated, map[string]any{"message": "Job added successfully", "id": id})
}

// handleUpdateReview changes the status, rating and headline of a review.
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var body UpdateReviewBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := &types.UpdateReviewRequest{
		ID:            id,
		CurrentStatus: body.CurrentStatus,
		Rating:        body.Rating,
		Headline:      body.Headline,
	}
	if err := req.Validate(); err != nil {
		s.failure(w, r, err)
		return
	}
	if err := s.writer.UpdateReview(r.Context(), req); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"success": true, "id": id})
}
