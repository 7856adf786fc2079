// Package config provides configuration loading and validation for the jobstats
// commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Files may be YAML or JSON; every field is
// optional and missing values take Defaults.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	DataAccess DataAccessConfig `yaml:"data_access" json:"data_access"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Engine     EngineConfig     `yaml:"engine" json:"engine"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Port            int      `yaml:"port" json:"port" validate:"min=1,max=65535"`
	ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit   float64  `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	RateBurst   int      `yaml:"rate_burst" json:"rate_burst" validate:"gte=0"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// DataAccessConfig configures both ends of the data access RPC.
type DataAccessConfig struct {
	// Addr is the target the API dials.
	Addr string `yaml:"addr" json:"addr" validate:"required"`
	// ListenAddr is where the data access service listens.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" validate:"required"`
	// RateLimit caps client calls per second; 0 disables throttling.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst" validate:"gte=0"`
}

// DatabaseConfig configures the PostgreSQL pool used by the data access service.
type DatabaseConfig struct {
	URL      string `yaml:"url" json:"url"`
	MaxConns int32  `yaml:"max_conns" json:"max_conns" validate:"gte=0"`
}

// EngineConfig tunes the aggregation engine.
type EngineConfig struct {
	PageSize               int      `yaml:"page_size" json:"page_size" validate:"min=1,max=5000"`
	CallTimeout            Duration `yaml:"call_timeout" json:"call_timeout"`
	CorrelationConcurrency int      `yaml:"correlation_concurrency" json:"correlation_concurrency" validate:"min=1"`
	ExpansionConcurrency   int      `yaml:"expansion_concurrency" json:"expansion_concurrency" validate:"min=1"`
	CorrelationPolicy      string   `yaml:"correlation_policy" json:"correlation_policy" validate:"oneof=fail_fast zero_on_error"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
	File   string `yaml:"file" json:"file"`
}

// Duration accepts "10s" style strings in both YAML and JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return d.Std().String(), nil }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.Std().String()) }

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
			CORSOrigins:     []string{"*"},
		},
		DataAccess: DataAccessConfig{
			Addr:       "localhost:50051",
			ListenAddr: ":50051",
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Engine: EngineConfig{
			PageSize:               1000,
			CallTimeout:            Duration(10 * time.Second),
			CorrelationConcurrency: 8,
			ExpansionConcurrency:   5,
			CorrelationPolicy:      "fail_fast",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads path over Defaults. The format follows the extension: .json is JSON,
// anything else is YAML.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Defaults()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: Defaults, then the optional file, then the
// process environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		if err := dst.parse(v); err != nil {
			return fmt.Errorf("config error: %s: %w", key, err)
		}
		return nil
	}

	str("DATABASE_URL", &c.Database.URL)
	str("JOBSTATS_DATA_ACCESS_ADDR", &c.DataAccess.Addr)
	str("JOBSTATS_DATA_ACCESS_LISTEN_ADDR", &c.DataAccess.ListenAddr)
	str("JOBSTATS_CORRELATION_POLICY", &c.Engine.CorrelationPolicy)
	str("JOBSTATS_LOG_LEVEL", &c.Log.Level)
	str("JOBSTATS_LOG_FORMAT", &c.Log.Format)
	str("JOBSTATS_LOG_FILE", &c.Log.File)

	return errors.Join(
		num("JOBSTATS_PORT", &c.Server.Port),
		num("JOBSTATS_PAGE_SIZE", &c.Engine.PageSize),
		dur("JOBSTATS_CALL_TIMEOUT", &c.Engine.CallTimeout),
	)
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.Engine.CallTimeout.Std() <= 0 {
		return fmt.Errorf("config error: 'engine.call_timeout' must be positive")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("config error: 'server.rate_burst' must be at least 1 when rate limiting is on")
	}
	if c.DataAccess.RateLimit > 0 && c.DataAccess.RateBurst < 1 {
		return fmt.Errorf("config error: 'data_access.rate_burst' must be at least 1 when throttling is on")
	}
	return nil
}
