package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobstats/internal/aggregation"
	"github.com/jonathan/jobstats/internal/dataaccess"
	"github.com/jonathan/jobstats/internal/metrics"
	"github.com/jonathan/jobstats/internal/types"
)

type fakeEngine struct {
	companies []types.CompanyRating
	cities    []types.CityRating
	rated     []types.JobRating
	largest   []types.JobPosting
	salary    float64
	err       error

	gotTitle, gotCity string
}

func (f *fakeEngine) BestEmployers(context.Context) ([]types.CompanyRating, error) {
	return f.companies, f.err
}

func (f *fakeEngine) BestCities(context.Context) ([]types.CityRating, error) {
	return f.cities, f.err
}

func (f *fakeEngine) JobsWithRating(_ context.Context, title, city string) ([]types.JobRating, error) {
	f.gotTitle, f.gotCity = title, city
	return f.rated, f.err
}

func (f *fakeEngine) LargestEmployersJobs(context.Context) ([]types.JobPosting, error) {
	return f.largest, f.err
}

func (f *fakeEngine) AverageSalary(_ context.Context, title string) (float64, error) {
	f.gotTitle = title
	return f.salary, f.err
}

type fakeWriter struct {
	reviews []types.CreateReviewRequest
	jobs    []types.AddJobRequest
	updates []types.UpdateReviewRequest
	err     error
}

func (f *fakeWriter) CreateReview(_ context.Context, req *types.CreateReviewRequest) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.reviews = append(f.reviews, *req)
	return int64(len(f.reviews)), nil
}

func (f *fakeWriter) AddJob(_ context.Context, req *types.AddJobRequest) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.jobs = append(f.jobs, *req)
	return int64(len(f.jobs)), nil
}

func (f *fakeWriter) UpdateReview(_ context.Context, req *types.UpdateReviewRequest) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, *req)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, cfg Config, engine *fakeEngine, writer *fakeWriter) *Server {
	t.Helper()
	s, err := New(cfg, engine, writer, nil, quietLogger())
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{}, nil, &fakeWriter{}, nil, nil)
	assert.Error(t, err)
	_, err = New(Config{}, &fakeEngine{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestBestCompanies(t *testing.T) {
	engine := &fakeEngine{companies: []types.CompanyRating{{Firm: "A", OverallRating: 3, ReviewCount: 2}}}
	s := newTestServer(t, Config{}, engine, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/bestCompanies", "")

	require.Equal(t, http.StatusOK, w.Code)
	companies := decode(t, w)["companies"].([]any)
	require.Len(t, companies, 1)
	assert.Equal(t, "A", companies[0].(map[string]any)["firm"])
}

func TestEmptyRankingsAreEmptyArrays(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{})

	for _, tt := range []struct{ path, key string }{
		{"/bestCompanies", "companies"},
		{"/bestCities", "cities"},
		{"/largestCompaniesJobs", "jobs"},
	} {
		w := do(t, s.Handler(), http.MethodGet, tt.path, "")
		require.Equal(t, http.StatusOK, w.Code, tt.path)
		assert.Contains(t, w.Body.String(), fmt.Sprintf(`"%s":[]`, tt.key), tt.path)
	}
}

func TestBestCities(t *testing.T) {
	engine := &fakeEngine{cities: []types.CityRating{
		{City: "New York", AverageRating: 5, ReviewCount: 3},
		{City: "Austin", AverageRating: 1, ReviewCount: 1},
	}}
	s := newTestServer(t, Config{}, engine, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/bestCities", "")

	require.Equal(t, http.StatusOK, w.Code)
	cities := decode(t, w)["cities"].([]any)
	require.Len(t, cities, 2)
	assert.Equal(t, "New York", cities[0].(map[string]any)["city"])
	assert.Equal(t, 5.0, cities[0].(map[string]any)["average_rating"])
}

func TestJobsWithRating(t *testing.T) {
	engine := &fakeEngine{rated: []types.JobRating{{
		Job:    types.JobPosting{JobID: "7", Title: "Engineer", CompanyName: "Acme", Description: "build", Location: "Boston", Views: 12},
		Rating: 4,
	}}}
	s := newTestServer(t, Config{}, engine, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/jobsWithRating?title=Engineer&city=%20Boston%20", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Engineer", engine.gotTitle)
	assert.Equal(t, "Boston", engine.gotCity)
	jobs := decode(t, w)["jobs"].([]any)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]any)
	assert.Equal(t, "Acme", job["company"])
	assert.Equal(t, 12.0, job["views"])
	assert.Equal(t, 4.0, job["rating"])
}

func TestJobsWithRating_MissingParams(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{})

	for _, target := range []string{"/jobsWithRating", "/jobsWithRating?title=Engineer", "/jobsWithRating?city=Boston"} {
		w := do(t, s.Handler(), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "Title and city are required", decode(t, w)["error"])
	}
}

func TestLargestCompaniesJobs(t *testing.T) {
	engine := &fakeEngine{largest: []types.JobPosting{{JobID: "b1"}, {JobID: "a1"}, {JobID: "a2"}}}
	s := newTestServer(t, Config{}, engine, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/largestCompaniesJobs", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 3.0, resp["count"])
	jobs := resp["jobs"].([]any)
	assert.Equal(t, "b1", jobs[0].(map[string]any)["job_id"])
}

func TestAverageSalary(t *testing.T) {
	engine := &fakeEngine{salary: 50}
	s := newTestServer(t, Config{}, engine, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/averageSalary?title=Engineer", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50.0, decode(t, w)["averageSalary"])
	assert.Equal(t, "Engineer", engine.gotTitle)

	w = do(t, s.Handler(), http.MethodGet, "/averageSalary", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Title is required", decode(t, w)["error"])
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upstream", &aggregation.UpstreamError{Op: "FetchReviewsPage", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"timeout", &aggregation.UpstreamError{Op: "FetchReviewsPage", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, &fakeEngine{err: tt.err}, &fakeWriter{})

			w := do(t, s.Handler(), http.MethodGet, "/bestCompanies", "")

			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestAddJobReview(t *testing.T) {
	writer := &fakeWriter{}
	s := newTestServer(t, Config{}, &fakeEngine{}, writer)

	body := `{"firm":"Acme","job_title":"Engineer","location":"Boston","overall_rating":4,"pros":"team","cons":"commute"}`
	w := do(t, s.Handler(), http.MethodPost, "/addJobReview", body)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 1.0, resp["id"])
	require.Len(t, writer.reviews, 1)
	assert.Equal(t, "Acme", writer.reviews[0].Firm)
}

func TestAddJobReview_Invalid(t *testing.T) {
	writer := &fakeWriter{}
	s := newTestServer(t, Config{}, &fakeEngine{}, writer)

	w := do(t, s.Handler(), http.MethodPost, "/addJobReview", `{"firm":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "JobTitle")

	w = do(t, s.Handler(), http.MethodPost, "/addJobReview", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, writer.reviews)
}

func TestAddJob(t *testing.T) {
	writer := &fakeWriter{}
	s := newTestServer(t, Config{}, &fakeEngine{}, writer)

	body := `{"title":"Engineer","company_name":"Acme","description":"build","location":"Boston","normalized_salary":120000}`
	w := do(t, s.Handler(), http.MethodPost, "/addJob", body)

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Job added successfully", resp["message"])
	require.Len(t, writer.jobs, 1)
	assert.Equal(t, 120000.0, *writer.jobs[0].NormalizedSalary)

	w = do(t, s.Handler(), http.MethodPost, "/addJob", `{"title":"Engineer"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateReview(t *testing.T) {
	writer := &fakeWriter{}
	s := newTestServer(t, Config{}, &fakeEngine{}, writer)

	w := do(t, s.Handler(), http.MethodPut, "/reviews/42", `{"current_status":"Former","rating":2,"headline":"meh"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, writer.updates, 1)
	assert.Equal(t, int64(42), writer.updates[0].ID)
	assert.Equal(t, "Former", writer.updates[0].CurrentStatus)
	assert.Equal(t, 2.0, writer.updates[0].Rating)
}

func TestUpdateReview_Errors(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		body      string
		writerErr error
		want      int
	}{
		{name: "bad id", target: "/reviews/abc", body: `{}`, want: http.StatusBadRequest},
		{name: "zero id", target: "/reviews/0", body: `{}`, want: http.StatusBadRequest},
		{name: "rating out of range", target: "/reviews/1", body: `{"rating":9}`, want: http.StatusBadRequest},
		{name: "missing review", target: "/reviews/99", body: `{"rating":1}`, writerErr: fmt.Errorf("UpdateReview: %w", dataaccess.ErrNotFound), want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{err: tt.writerErr})

			w := do(t, s.Handler(), http.MethodPut, tt.target, tt.body)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Config{CORSOrigins: []string{"https://jobs.example.com"}}, &fakeEngine{}, &fakeWriter{})

	req := httptest.NewRequest(http.MethodOptions, "/bestCities", nil)
	req.Header.Set("Origin", "https://jobs.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://jobs.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AnyOriginByDefault(t *testing.T) {
	s := newTestServer(t, Config{}, &fakeEngine{}, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{RateLimit: 1, RateBurst: 1}, &fakeEngine{salary: 1}, &fakeWriter{})

	w := do(t, s.Handler(), http.MethodGet, "/averageSalary?title=x", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do(t, s.Handler(), http.MethodGet, "/averageSalary?title=x", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode(t, w)["error"])

	// Health checks bypass the limiter.
	w = do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s, err := New(Config{}, &fakeEngine{}, &fakeWriter{}, m, quietLogger())
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	do(t, s.Handler(), http.MethodGet, "/health", "")
	do(t, s.Handler(), http.MethodGet, "/nope", "")
	w := do(t, s.Handler(), http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `jobstats_http_requests_total{method="GET",route="GET /health",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, Config{ShutdownTimeout: time.Second}, &fakeEngine{}, &fakeWriter{})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	url := "http://" + lis.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: http.StatusOK},
		{name: "validation", err: &types.ValidationError{Field: "Title", Message: "required"}, expected: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("UpdateReview: %w", dataaccess.ErrNotFound), expected: http.StatusNotFound},
		{name: "upstream", err: &aggregation.UpstreamError{Op: "FetchEmployers", Err: errors.New("unavailable")}, expected: http.StatusBadGateway},
		{name: "upstream rejected request", err: &aggregation.UpstreamError{Op: "FetchReviewsPage", Err: &types.ValidationError{Field: "limit", Message: "must be at most 5000"}}, expected: http.StatusBadGateway},
		{name: "upstream deadline", err: &aggregation.UpstreamError{Op: "FetchEmployers", Err: context.DeadlineExceeded}, expected: http.StatusGatewayTimeout},
		{name: "canceled", err: context.Canceled, expected: 499},
		{name: "unknown", err: assert.AnError, expected: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	verr := &types.ValidationError{Field: "Title", Message: "required"}
	assert.Equal(t, "validation error: Title - required", publicMessage(verr))
	assert.Equal(t, "Upstream unavailable", publicMessage(&aggregation.UpstreamError{Op: "x", Err: errors.New("secret dsn")}))
	assert.False(t, strings.Contains(publicMessage(errors.New("secret dsn")), "secret"))

	rejected := &aggregation.UpstreamError{Op: "FetchReviewsPage", Err: &types.ValidationError{Field: "limit", Message: "must be at most 5000"}}
	assert.Equal(t, "Upstream unavailable", publicMessage(rejected))
}
