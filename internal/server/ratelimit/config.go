package ratelimit

import (
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	// DefaultRate is requests per second for routes without an endpoint entry.
	DefaultRate     float64
	DefaultBurst    int
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	EndpointConfigs []EndpointConfig
}

// NewConfig builds a configuration from the service settings. A rate of 0 turns
// limiting off.
func NewConfig(perSecond float64, burst int) *Config {
	if perSecond <= 0 {
		return &Config{Enabled: false}
	}
	if burst < 1 {
		burst = 1
	}
	return &Config{
		Enabled:         true,
		DefaultRate:     perSecond,
		DefaultBurst:    burst,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Full-table aggregations page through every review or posting.
		{Path: "/bestCompanies", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/bestCities", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/largestCompaniesJobs", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},

		// Writes
		{Path: "/addJobReview", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/addJob", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/reviews/", Method: "PUT", Limit: 60, Window: time.Minute, Burst: 10},
	}
}
