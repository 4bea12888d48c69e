package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)

	// API defaults
	assert.Empty(t, cfg.API.Token)
	assert.Equal(t, "8h41mMOiDULmlLT28xKSv5ITpp3XBRvH", cfg.API.ClientID)
	assert.Equal(t, "2", cfg.API.APIVersion)
	assert.NotEmpty(t, cfg.API.UserAgent)
	assert.Equal(t, "https://apigee-prod.api-wr.com/wx/v1/bff/graphql", cfg.API.GraphQLURL)
	assert.Equal(t, cfg.API.DetailsURL+"/download", cfg.API.DownloadURL)

	// Output defaults
	assert.Equal(t, "./receipts", cfg.Output.BaseDirectory)
	assert.Equal(t, []string{"This_Month", "Last_Month"}, cfg.Output.StagingDirectories)
	assert.False(t, cfg.Output.KeepStaging)

	// Download defaults
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 1, cfg.Download.RetryAttempts)

	assert.Equal(t, 0, cfg.RateLimit.RequestsPerMinute)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REWARDSRECEIPTS_TOKEN", "env-token")
	t.Setenv("REWARDSRECEIPTS_OUTPUT_DIR", "/tmp/env-receipts")
	t.Setenv("REWARDSRECEIPTS_TIMEOUT", "45s")
	t.Setenv("REWARDSRECEIPTS_RETRY_ATTEMPTS", "3")
	t.Setenv("REWARDSRECEIPTS_REQUESTS_PER_MINUTE", "30")
	t.Setenv("REWARDSRECEIPTS_NOTIFICATIONS_ENABLED", "TRUE")
	t.Setenv("REWARDSRECEIPTS_METRICS_TEXTFILE", "/tmp/rewards.prom")
	t.Setenv("REWARDSRECEIPTS_LOG_LEVEL", "debug")
	t.Setenv("REWARDSRECEIPTS_LOG_FORMAT", "json")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, "/tmp/env-receipts", cfg.Output.BaseDirectory)
	assert.Equal(t, 45*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 3, cfg.Download.RetryAttempts)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "/tmp/rewards.prom", cfg.Metrics.Textfile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("REWARDSRECEIPTS_TIMEOUT", "soon")
	t.Setenv("REWARDSRECEIPTS_RETRY_ATTEMPTS", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REWARDSRECEIPTS_TIMEOUT")
	assert.Contains(t, err.Error(), "REWARDSRECEIPTS_RETRY_ATTEMPTS")

	// Invalid values leave the defaults in place
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 1, cfg.Download.RetryAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:   "missing token is allowed",
			modify: func(c *Config) { c.API.Token = "" },
		},
		{
			name:    "missing graphql endpoint",
			modify:  func(c *Config) { c.API.GraphQLURL = "" },
			wantErr: "graphql_url",
		},
		{
			name:    "non http endpoint",
			modify:  func(c *Config) { c.API.DetailsURL = "ftp://example.com/details" },
			wantErr: "details_url",
		},
		{
			name:    "missing client id",
			modify:  func(c *Config) { c.API.ClientID = "" },
			wantErr: "client id is required",
		},
		{
			name:    "missing output directory",
			modify:  func(c *Config) { c.Output.BaseDirectory = "" },
			wantErr: "output directory is required",
		},
		{
			name:    "staging directory with separator",
			modify:  func(c *Config) { c.Output.StagingDirectories = []string{"a/b"} },
			wantErr: "plain directory name",
		},
		{
			name:    "staging directory parent",
			modify:  func(c *Config) { c.Output.StagingDirectories = []string{".."} },
			wantErr: "plain directory name",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Download.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "zero retry attempts",
			modify:  func(c *Config) { c.Download.RetryAttempts = 0 },
			wantErr: "retry attempts",
		},
		{
			name:    "negative rate limit",
			modify:  func(c *Config) { c.RateLimit.RequestsPerMinute = -1 },
			wantErr: "requests per minute",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.BaseDirectory = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory is required")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"token":         "flag-token",
		"output":        "/flag/output",
		"keep-staging":  true,
		"timeout":       10 * time.Second,
		"retries":       4,
		"rate-limit":    20,
		"metrics-file":  "/flag/metrics.prom",
		"notifications": true,
		"log-level":     "error",
	})

	assert.Equal(t, "flag-token", cfg.API.Token)
	assert.Equal(t, "/flag/output", cfg.Output.BaseDirectory)
	assert.True(t, cfg.Output.KeepStaging)
	assert.Equal(t, 10*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 4, cfg.Download.RetryAttempts)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/flag/metrics.prom", cfg.Metrics.Textfile)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestMergeCommandLineFlagsIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Token = "from-file"

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"token":   "",
		"output":  "",
		"timeout": time.Duration(0),
		"retries": 0,
	})

	assert.Equal(t, "from-file", cfg.API.Token)
	assert.Equal(t, "./receipts", cfg.Output.BaseDirectory)
	assert.Equal(t, 30*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 1, cfg.Download.RetryAttempts)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.Token = "saved-token"
	cfg.Output.StagingDirectories = []string{"This_Month"}
	cfg.Download.Timeout = 5 * time.Second
	require.NoError(t, cfg.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, "saved-token", loaded.API.Token)
	assert.Equal(t, []string{"This_Month"}, loaded.Output.StagingDirectories)
	assert.Equal(t, 5*time.Second, loaded.Download.Timeout)
}

func TestLoadFromFilePartialOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data, err := yaml.Marshal(map[string]interface{}{
		"output": map[string]interface{}{"base_directory": "/data/receipts"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, "/data/receipts", cfg.Output.BaseDirectory)
	// Untouched sections keep their defaults
	assert.Equal(t, "2", cfg.API.APIVersion)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output: [unterminated"), 0600))
	err = cfg.LoadFromFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	fileCfg := DefaultConfig()
	fileCfg.Output.BaseDirectory = "/from/file"
	fileCfg.Logging.Level = "warn"
	fileCfg.API.Token = "file-token"
	require.NoError(t, fileCfg.Save(configPath))

	t.Setenv("REWARDSRECEIPTS_LOG_LEVEL", "debug")
	t.Setenv("REWARDSRECEIPTS_TOKEN", "env-token")

	cfg, err := Load(configPath, map[string]interface{}{
		"token": "flag-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "/from/file", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "flag-token", cfg.API.Token)
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load("", map[string]interface{}{"log-level": "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
