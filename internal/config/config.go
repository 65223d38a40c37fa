// Package config provides configuration loading and validation for the
// recruitment service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WritePolicy decides how a local mutation relates to its remote write.
type WritePolicy string

const (
	// WriteOptimistic commits locally, then enqueues the remote write.
	// Transport failures never reach the caller.
	WriteOptimistic WritePolicy = "optimistic"
	// WriteStrict sends the remote write first and leaves local state
	// untouched when it fails.
	WriteStrict WritePolicy = "strict"
)

// HoldPolicy decides where an owner Hold leaves a candidate.
type HoldPolicy string

const (
	// HoldRevisit keeps Hold candidates in the owner review queue until
	// a final decision is made.
	HoldRevisit HoldPolicy = "revisit"
	// HoldTerminal drops Hold candidates from every stage queue. They are
	// only reachable through the on-hold listing.
	HoldTerminal HoldPolicy = "terminal"
)

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults.
type Config struct {
	// Storage
	DataDir     string `json:"data_dir,omitempty"`     // Directory of the local document cache
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL mirror connection URL

	// Replication
	SyncAPIURL         string      `json:"sync_api_url,omitempty"`         // Spreadsheet-backed sync endpoint
	SyncTimeoutSeconds int         `json:"sync_timeout_seconds,omitempty"` // Per-request timeout for the sync endpoint
	WritePolicy        WritePolicy `json:"write_policy,omitempty"`
	Workers            int         `json:"workers,omitempty"`
	QueueSize          int         `json:"queue_size,omitempty"`
	MaxAttempts        int         `json:"max_attempts,omitempty"`
	BaseDelayMillis    int         `json:"base_delay_ms,omitempty"`
	MaxDelayMillis     int         `json:"max_delay_ms,omitempty"`

	// Pipeline
	HoldPolicy           HoldPolicy `json:"hold_policy,omitempty"`
	UploadLimit          int        `json:"upload_limit,omitempty"`           // Max filenames per upload batch
	DefaultInterviewTime string     `json:"default_interview_time,omitempty"` // Used when owner approval omits a time
	Timezone             string     `json:"timezone,omitempty"`               // Zone used to decide "today" for walk-ins

	// Invitation and links
	CompanyName      string `json:"company_name,omitempty"`
	CompanyAddress   string `json:"company_address,omitempty"`
	InterviewBaseURL string `json:"interview_base_url,omitempty"`

	// Server
	ListenAddr string `json:"listen_addr,omitempty"`
	Verbose    bool   `json:"verbose,omitempty"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:              ".hrms",
		SyncTimeoutSeconds:   10,
		WritePolicy:          WriteOptimistic,
		Workers:              2,
		QueueSize:            1000,
		MaxAttempts:          5,
		BaseDelayMillis:      500,
		MaxDelayMillis:       30000,
		HoldPolicy:           HoldRevisit,
		UploadLimit:          50,
		DefaultInterviewTime: "10:00 AM",
		Timezone:             "Local",
		CompanyName:          "Our Company",
		InterviewBaseURL:     "http://localhost:8080/interview",
		ListenAddr:           ":8080",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
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

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load reads the optional config file, applies environment overrides and
// fills the rest from defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Default())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from HRMS_* and well-known environment variables.
func (c *Config) ApplyEnv() {
	c.DataDir = EnvString("HRMS_DATA_DIR", c.DataDir)
	c.DatabaseURL = EnvString("DATABASE_URL", c.DatabaseURL)
	c.SyncAPIURL = EnvString("SYNC_API_URL", c.SyncAPIURL)
	c.SyncTimeoutSeconds = EnvInt("HRMS_SYNC_TIMEOUT_SECONDS", c.SyncTimeoutSeconds)
	c.WritePolicy = WritePolicy(EnvString("HRMS_WRITE_POLICY", string(c.WritePolicy)))
	c.Workers = EnvInt("HRMS_WORKERS", c.Workers)
	c.MaxAttempts = EnvInt("HRMS_MAX_ATTEMPTS", c.MaxAttempts)
	c.HoldPolicy = HoldPolicy(EnvString("HRMS_HOLD_POLICY", string(c.HoldPolicy)))
	c.UploadLimit = EnvInt("HRMS_UPLOAD_LIMIT", c.UploadLimit)
	c.Timezone = EnvString("HRMS_TIMEZONE", c.Timezone)
	c.CompanyName = EnvString("HRMS_COMPANY_NAME", c.CompanyName)
	c.CompanyAddress = EnvString("HRMS_COMPANY_ADDRESS", c.CompanyAddress)
	c.InterviewBaseURL = EnvString("HRMS_INTERVIEW_BASE_URL", c.InterviewBaseURL)
	c.ListenAddr = EnvString("HRMS_LISTEN_ADDR", c.ListenAddr)
	c.Verbose = EnvBool("HRMS_VERBOSE", c.Verbose)
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.WritePolicy {
	case "", WriteOptimistic, WriteStrict:
	default:
		return fmt.Errorf("config error: 'write_policy' must be %q or %q, got %q", WriteOptimistic, WriteStrict, c.WritePolicy)
	}
	switch c.HoldPolicy {
	case "", HoldRevisit, HoldTerminal:
	default:
		return fmt.Errorf("config error: 'hold_policy' must be %q or %q, got %q", HoldRevisit, HoldTerminal, c.HoldPolicy)
	}

	if c.UploadLimit < 0 {
		return fmt.Errorf("config error: 'upload_limit' must be non-negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.MaxDelayMillis > 0 && c.BaseDelayMillis > c.MaxDelayMillis {
		return fmt.Errorf("config error: 'base_delay_ms' must not exceed 'max_delay_ms'")
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config error: unknown timezone %q: %w", c.Timezone, err)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SyncAPIURL == "" {
		result.SyncAPIURL = defaults.SyncAPIURL
	}
	if result.WritePolicy == "" {
		result.WritePolicy = defaults.WritePolicy
	}
	if result.HoldPolicy == "" {
		result.HoldPolicy = defaults.HoldPolicy
	}
	if result.DefaultInterviewTime == "" {
		result.DefaultInterviewTime = defaults.DefaultInterviewTime
	}
	if result.Timezone == "" {
		result.Timezone = defaults.Timezone
	}
	if result.CompanyName == "" {
		result.CompanyName = defaults.CompanyName
	}
	if result.CompanyAddress == "" {
		result.CompanyAddress = defaults.CompanyAddress
	}
	if result.InterviewBaseURL == "" {
		result.InterviewBaseURL = defaults.InterviewBaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}

	// Int fields: use default if zero
	if result.SyncTimeoutSeconds == 0 {
		result.SyncTimeoutSeconds = defaults.SyncTimeoutSeconds
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.QueueSize == 0 {
		result.QueueSize = defaults.QueueSize
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.BaseDelayMillis == 0 {
		result.BaseDelayMillis = defaults.BaseDelayMillis
	}
	if result.MaxDelayMillis == 0 {
		result.MaxDelayMillis = defaults.MaxDelayMillis
	}
	if result.UploadLimit == 0 {
		result.UploadLimit = defaults.UploadLimit
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SyncTimeout returns the sync endpoint timeout as a duration.
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}
