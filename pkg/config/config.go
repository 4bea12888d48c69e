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

const envPrefix = "REWARDSRECEIPTS_"

// Config holds all configuration options for the receipts downloader
type Config struct {
	// Backend endpoints and identification
	API APIConfig `yaml:"api" json:"api"`

	// Output layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Per-request and per-item settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the backend endpoints and the identification headers
type APIConfig struct {
	Token       string `yaml:"token,omitempty" json:"token,omitempty"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	APIVersion  string `yaml:"api_version" json:"api_version"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
	GraphQLURL  string `yaml:"graphql_url" json:"graphql_url"`
	DetailsURL  string `yaml:"details_url" json:"details_url"`
	DownloadURL string `yaml:"download_url" json:"download_url"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	// StagingDirectories are removed before every run because the feed
	// recomputes their membership each time
	StagingDirectories []string `yaml:"staging_directories" json:"staging_directories"`
	KeepStaging        bool     `yaml:"keep_staging" json:"keep_staging"`
}

// DownloadConfig holds request and per-item settings
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// RequestsPerMinute of 0 disables pacing
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format after every run
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			ClientID:    "8h41mMOiDULmlLT28xKSv5ITpp3XBRvH",
			APIVersion:  "2",
			UserAgent:   "rewardsreceipts (Everyday Rewards receipts downloader)",
			GraphQLURL:  "https://apigee-prod.api-wr.com/wx/v1/bff/graphql",
			DetailsURL:  "https://api.woolworthsrewards.com.au/wx/v1/rewards/member/ereceipts/transactions/details",
			DownloadURL: "https://api.woolworthsrewards.com.au/wx/v1/rewards/member/ereceipts/transactions/details/download",
		},
		Output: OutputConfig{
			BaseDirectory:      "./receipts",
			StagingDirectories: []string{"This_Month", "Last_Month"},
			KeepStaging:        false,
		},
		Download: DownloadConfig{
			Timeout:       30 * time.Second,
			RetryAttempts: 1,
			RetryDelay:    2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if token := os.Getenv(envPrefix + "TOKEN"); token != "" {
		c.API.Token = token
	}
	if userAgent := os.Getenv(envPrefix + "USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if outputDir := os.Getenv(envPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if timeout := os.Getenv(envPrefix + "TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}

	if attempts := os.Getenv(envPrefix + "RETRY_ATTEMPTS"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sRETRY_ATTEMPTS: %w", envPrefix, err))
		} else {
			c.Download.RetryAttempts = val
		}
	}

	if rpm := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %w", envPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if notifEnabled := os.Getenv(envPrefix + "NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}
	if textfile := os.Getenv(envPrefix + "METRICS_TEXTFILE"); textfile != "" {
		c.Metrics.Textfile = textfile
	}
	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv(envPrefix + "LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".rewardsreceipts.yaml",
		".rewardsreceipts.yml",
		filepath.Join(home, ".config", "rewardsreceipts", "config.yaml"),
		filepath.Join(home, ".config", "rewardsreceipts", "config.yml"),
		filepath.Join(home, ".rewardsreceipts.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// The token is not checked here; it may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	endpoints := map[string]string{
		"graphql_url":  c.API.GraphQLURL,
		"details_url":  c.API.DetailsURL,
		"download_url": c.API.DownloadURL,
	}
	for name, raw := range endpoints {
		if err := validateEndpoint(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.API.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.API.APIVersion == "" {
		errs = append(errs, errors.New("api version is required"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	for _, dir := range c.Output.StagingDirectories {
		if dir == "" || dir != filepath.Base(dir) || dir == "." || dir == ".." {
			errs = append(errs, fmt.Errorf("staging directory %q must be a plain directory name", dir))
		}
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validLogFormats := map[string]bool{
		"console": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("endpoint host is required")
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry the token
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.API.Token = token
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if keep, ok := flags["keep-staging"].(bool); ok && keep {
		c.Output.KeepStaging = true
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if retries, ok := flags["retries"].(int); ok && retries > 0 {
		c.Download.RetryAttempts = retries
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if textfile, ok := flags["metrics-file"].(string); ok && textfile != "" {
		c.Metrics.Textfile = textfile
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".rewardsreceipts.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
