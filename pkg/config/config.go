package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable the tool reads
const EnvPrefix = "SKYTALLY_"

// Config holds all configuration options for skytally
type Config struct {
	// Remote API settings
	API APIConfig `yaml:"api" json:"api"`

	// Backoff and retry policy per endpoint
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Pagination limits
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`

	// Client-side request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Aggregation filters
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the remote service settings
type APIConfig struct {
	// Endpoints are tried in order for every request
	Endpoints []string      `yaml:"endpoints" json:"endpoints"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	EmbedURL  string        `yaml:"embed_url" json:"embed_url"`
}

// RetryConfig holds the backoff policy applied to each endpoint
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// PaginationConfig bounds how much data a single collection run fetches
type PaginationConfig struct {
	Limit    int `yaml:"limit" json:"limit"`
	PageSize int `yaml:"page_size" json:"page_size"`
	MaxPages int `yaml:"max_pages" json:"max_pages"`
}

// RateLimitConfig holds client-side pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// FilterConfig holds the post-processing options applied to every table
type FilterConfig struct {
	MinCount int `yaml:"min_count" json:"min_count"`
	// MaxCount of 0 means unbounded
	MaxCount int `yaml:"max_count" json:"max_count"`
	// TopN of 0 keeps every entry
	TopN int `yaml:"top_n" json:"top_n"`
	// StartDate and EndDate are inclusive YYYY-MM-DD bounds, empty for open
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	// JSON switches console output from the pretty writer to raw JSON lines
	JSON bool `yaml:"json" json:"json"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoints: []string{
				"https://public.api.bsky.app/xrpc",
				"https://api.bsky.app/xrpc",
			},
			Timeout:   30 * time.Second,
			UserAgent: "skytally/1.0 (+https://bsky.app)",
			EmbedURL:  "https://embed.bsky.app/oembed",
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0,
		},
		Pagination: PaginationConfig{
			Limit:    2000,
			PageSize: 100,
			MaxPages: 100,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 300,
			BurstSize:         5,
		},
		Filter: FilterConfig{
			MinCount: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if endpoints := os.Getenv(EnvPrefix + "ENDPOINTS"); endpoints != "" {
		c.API.Endpoints = splitList(endpoints)
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if timeout := os.Getenv(EnvPrefix + "TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.API.Timeout = d
		}
	}

	intVars := map[string]*int{
		"MAX_ATTEMPTS":        &c.Retry.MaxAttempts,
		"LIMIT":               &c.Pagination.Limit,
		"PAGE_SIZE":           &c.Pagination.PageSize,
		"MAX_PAGES":           &c.Pagination.MaxPages,
		"REQUESTS_PER_MINUTE": &c.RateLimit.RequestsPerMinute,
		"MIN_COUNT":           &c.Filter.MinCount,
		"MAX_COUNT":           &c.Filter.MaxCount,
		"TOP_N":               &c.Filter.TopN,
	}
	for name, dst := range intVars {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			continue
		}
		*dst = val
	}

	durationVars := map[string]*time.Duration{
		"BASE_DELAY": &c.Retry.BaseDelay,
		"MAX_DELAY":  &c.Retry.MaxDelay,
	}
	for name, dst := range durationVars {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			continue
		}
		*dst = d
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(EnvPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".skytally.yaml",
		".skytally.yml",
		filepath.Join(home, ".config", "skytally", "config.yaml"),
		filepath.Join(home, ".config", "skytally", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.API.Endpoints) == 0 {
		errs = append(errs, errors.New("at least one API endpoint is required"))
	}
	for _, endpoint := range c.API.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid API endpoint %q", endpoint))
		}
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("base delay cannot be negative"))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("max delay must not be lower than base delay"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
	}

	if c.Pagination.Limit <= 0 {
		errs = append(errs, errors.New("limit must be positive"))
	}
	if c.Pagination.PageSize <= 0 || c.Pagination.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.Pagination.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Filter.MinCount < 0 {
		errs = append(errs, errors.New("min count cannot be negative"))
	}
	if c.Filter.MaxCount != 0 && c.Filter.MaxCount < c.Filter.MinCount {
		errs = append(errs, errors.New("max count must not be lower than min count"))
	}
	if c.Filter.TopN < 0 {
		errs = append(errs, errors.New("top n cannot be negative"))
	}
	start, startErr := ParseDate(c.Filter.StartDate)
	if startErr != nil {
		errs = append(errs, fmt.Errorf("start date: %w", startErr))
	}
	end, endErr := ParseDate(c.Filter.EndDate)
	if endErr != nil {
		errs = append(errs, fmt.Errorf("end date: %w", endErr))
	}
	if startErr == nil && endErr == nil && !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = append(errs, errors.New("end date is before start date"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["limit"].(int); ok && v > 0 {
		c.Pagination.Limit = v
	}
	if v, ok := flags["page-size"].(int); ok && v > 0 {
		c.Pagination.PageSize = v
	}
	if v, ok := flags["max-pages"].(int); ok && v > 0 {
		c.Pagination.MaxPages = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.API.Timeout = v
	}
	if v, ok := flags["endpoints"].([]string); ok && len(v) > 0 {
		c.API.Endpoints = v
	}
	if v, ok := flags["min"].(int); ok {
		c.Filter.MinCount = v
	}
	if v, ok := flags["max"].(int); ok {
		c.Filter.MaxCount = v
	}
	if v, ok := flags["top"].(int); ok {
		c.Filter.TopN = v
	}
	if v, ok := flags["from"].(string); ok {
		c.Filter.StartDate = v
	}
	if v, ok := flags["to"].(string); ok {
		c.Filter.EndDate = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".skytally.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// ParseDate parses an inclusive YYYY-MM-DD bound; the empty string yields the zero time
func ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
