package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/netflix/go-env"

	"github.com/probeops/leakprobe/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, &types.ProbeError{
			Type:    types.ErrorTypeConfiguration,
			Message: fmt.Sprintf("failed to parse environment variables: %v", err),
			Cause:   err,
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.TogetherAPIKey) == "" {
		return &types.ProbeError{
			Type:    types.ErrorTypeConfiguration,
			Message: "TOGETHER_API_KEY is required",
		}
	}

	if err := validateBaseURL(config.TogetherBaseURL); err != nil {
		return err
	}

	// Validate concurrency limits
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Concurrency > 16 {
		config.Concurrency = 16
	}

	// Validate retry attempts
	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	if config.RetryAttempts > 10 {
		config.RetryAttempts = 10
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 2 * time.Second
	}

	// A finite timeout is mandatory so a stalled endpoint can never block forever
	if config.TimeoutSeconds < 1 {
		config.TimeoutSeconds = 120
	}

	if config.RateLimitPerMinute < 1 {
		config.RateLimitPerMinute = 60
	}

	if config.MaxTokens < 1 {
		config.MaxTokens = 1000
	}
	// The judge budget is independent of the probe budget: a tightly capped
	// probe must not starve the judge of room for its JSON verdict
	if config.JudgeMaxTokens < 1 {
		config.JudgeMaxTokens = 1000
	}
	if config.Temperature < 0 {
		config.Temperature = 0
	}
	if config.Temperature > 2 {
		config.Temperature = 2
	}

	if config.HistoryDBPath == "" {
		path, err := defaultHistoryDBPath()
		if err != nil {
			return fmt.Errorf("failed to resolve history database path: %w", err)
		}
		config.HistoryDBPath = path
	}

	return nil
}

func validateBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return &types.ProbeError{
			Type:    types.ErrorTypeConfiguration,
			Message: fmt.Sprintf("invalid TOGETHER_BASE_URL: %v", err),
			Cause:   err,
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &types.ProbeError{
			Type:    types.ErrorTypeConfiguration,
			Message: fmt.Sprintf("TOGETHER_BASE_URL must use http or https scheme, got %q", raw),
		}
	}
	if parsed.Host == "" {
		return &types.ProbeError{
			Type:    types.ErrorTypeConfiguration,
			Message: fmt.Sprintf("TOGETHER_BASE_URL must include a host, got %q", raw),
		}
	}
	return nil
}

func defaultHistoryDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".leakprobe", "history.db"), nil
}
