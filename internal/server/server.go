// Package server provides the HTTP JSON front door for the aggregation engine and the
// review and job write paths.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/jobstats/internal/server/ratelimit"
	"github.com/jonathan/jobstats/internal/types"
)

// Engine answers the read-side ranking and statistics queries.
type Engine interface {
	BestEmployers(ctx context.Context) ([]types.CompanyRating, error)
	BestCities(ctx context.Context) ([]types.CityRating, error)
	JobsWithRating(ctx context.Context, title, city string) ([]types.JobRating, error)
	LargestEmployersJobs(ctx context.Context) ([]types.JobPosting, error)
	AverageSalary(ctx context.Context, title string) (float64, error)
}

// Writer stores reviews and postings.
type Writer interface {
	CreateReview(ctx context.Context, req *types.CreateReviewRequest) (int64, error)
	AddJob(ctx context.Context, req *types.AddJobRequest) (int64, error)
	UpdateReview(ctx context.Context, req *types.UpdateReviewRequest) error
}

// Metrics records HTTP traffic and serves the scrape endpoint.
type Metrics interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	engine      Engine
	writer      Writer
	metrics     Metrics
	log         logrus.FieldLogger
	rateLimiter *ratelimit.Limiter
	handler     http.Handler
}

type ctxKey struct{}

// New creates a new server instance. metrics may be nil.
func New(cfg Config, engine Engine, writer Writer, metrics Metrics, log logrus.FieldLogger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if writer == nil {
		return nil, errors.New("server: writer is required")
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:         cfg,
		engine:      engine,
		writer:      writer,
		metrics:     metrics,
		log:         log.WithField("component", "http"),
		rateLimiter: ratelimit.NewLimiter(ratelimit.NewConfig(cfg.RateLimit, cfg.RateBurst)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// Rankings and statistics
	mux.HandleFunc("GET /bestCompanies", s.handleBestCompanies)
	mux.HandleFunc("GET /bestCities", s.handleBestCities)
	mux.HandleFunc("GET /jobsWithRating", s.handleJobsWithRating)
	mux.HandleFunc("GET /largestCompaniesJobs", s.handleLargestCompaniesJobs)
	mux.HandleFunc("GET /averageSalary", s.handleAverageSalary)

	// Writes
	mux.HandleFunc("POST /addJobReview", s.handleAddJobReview)
	mux.HandleFunc("POST /addJob", s.handleAddJob)
	mux.HandleFunc("PUT /reviews/{id}", s.handleUpdateReview)

	s.handler = s.withLogging(s.withRateLimit(s.withCORS(mux)))
	return s, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, lis)
}

// Serve runs the server on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", lis.Addr().String()).Info("Server starting")
		errCh <- httpServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the value for Access-Control-Allow-Origin, or "" when the origin
// is not permitted. No configured origins means any origin.
func (s *Server) allowedOrigin(origin string) string {
	if len(s.cfg.CORSOrigins) == 0 {
		return "*"
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// withLogging tags the request with an id, logs its outcome and records metrics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		entry := s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		elapsed := time.Since(start)
		entry.WithFields(logrus.Fields{
			"status":   sw.status,
			"duration": elapsed.String(),
		}).Info("request completed")

		if s.metrics != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			s.metrics.ObserveHTTPRequest(r.Method, route, sw.status, elapsed)
		}
	})
}

// logFor returns the request-scoped logger set by withLogging.
func (s *Server) logFor(r *http.Request) logrus.FieldLogger {
	if entry, ok := r.Context().Value(ctxKey{}).(logrus.FieldLogger); ok {
		return entry
	}
	return s.log
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logFor(r).WithError(err).Warn("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.jsonResponse(w, r, status, map[string]string{"error": message})
}

// failure maps err to a status, logs server-side faults and writes the error body.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logFor(r).WithError(err).Error("request failed")
	}
	s.errorResponse(w, r, status, publicMessage(err))
}

// extractClientID extracts the client identifier from the request: the IP address from
// RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = retry
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	s.logFor(r).WithFields(logrus.Fields{
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}).Warn("rate limit exceeded")

	s.jsonResponse(w, r, http.StatusTooManyRequests, response)
}
