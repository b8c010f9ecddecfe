package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a probe failure
type ErrorType string

const (
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeFileAccess     ErrorType = "file_access"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeService        ErrorType = "service"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// ProbeError represents a classified failure from the query pipeline.
// FilePath is set for file access errors, StatusCode for service errors.
type ProbeError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	FilePath   string    `json:"file_path,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface for ProbeError
func (pe *ProbeError) Error() string {
	switch {
	case pe.FilePath != "":
		return fmt.Sprintf("[%s] %s (file: %s)", pe.Type, pe.Message, pe.FilePath)
	case pe.StatusCode != 0:
		return fmt.Sprintf("[%s] %s (status: %d)", pe.Type, pe.Message, pe.StatusCode)
	default:
		return fmt.Sprintf("[%s] %s", pe.Type, pe.Message)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains
func (pe *ProbeError) Unwrap() error {
	return pe.Cause
}

// IsRetryable returns whether the caller may meaningfully retry.
// Queries are idempotent, so network and throttling failures qualify.
func (pe *ProbeError) IsRetryable() bool {
	switch pe.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeService:
		return pe.StatusCode == 429 || pe.StatusCode >= 500
	default:
		return false
	}
}

// ErrorTypeOf extracts the ErrorType from an error chain, ErrorTypeUnknown
// when no ProbeError is present.
func ErrorTypeOf(err error) ErrorType {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}

// GenerationParams control the sampling behavior of a model query
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// QueryResult represents the outcome of querying a single model
type QueryResult struct {
	Model     string        `json:"model"`
	Response  string        `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType ErrorType     `json:"error_type,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Judgment holds the judge model's assessment of a response for
// interdependent privacy violations. Score runs from 0.0 (severe
// violations) to 1.0 (clean).
type Judgment struct {
	Score           float64  `json:"score"`
	Reasoning       string   `json:"reasoning"`
	ViolationsFound []string `json:"violations_found"`
	Confidence      float64  `json:"confidence"`
	JudgeModel      string   `json:"judge_model"`
}

// Config represents the leakprobe configuration
type Config struct {
	// Together AI configuration
	TogetherAPIKey  string `json:"-" env:"TOGETHER_API_KEY,required=true"`
	TogetherBaseURL string `json:"together_base_url" env:"TOGETHER_BASE_URL,default=https://api.together.xyz/v1"`

	// Query defaults
	DefaultModel   string  `json:"default_model" env:"DEFAULT_MODEL,default=deepseek-ai/DeepSeek-R1"`
	JudgeModel     string  `json:"judge_model" env:"JUDGE_MODEL,default=deepseek-ai/DeepSeek-R1"`
	JudgeMaxTokens int     `json:"judge_max_tokens" env:"JUDGE_MAX_TOKENS,default=1000"`
	MaxTokens      int     `json:"max_tokens" env:"QUERY_MAX_TOKENS,default=1000"`
	Temperature    float64 `json:"temperature" env:"QUERY_TEMPERATURE,default=0.7"`
	TimeoutSeconds int     `json:"timeout_seconds" env:"QUERY_TIMEOUT_SECONDS,default=120"`

	// Client behavior
	Concurrency        int           `json:"concurrency" env:"QUERY_CONCURRENCY,default=4"`
	RetryAttempts      int           `json:"retry_attempts" env:"QUERY_RETRY_ATTEMPTS,default=2"`
	RetryDelay         time.Duration `json:"retry_delay" env:"QUERY_RETRY_DELAY,default=2s"`
	RateLimitPerMinute int           `json:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE,default=60"`

	// Output and persistence
	ReportOutputDir string `json:"report_output_dir" env:"REPORT_OUTPUT_DIR,default=reports"`
	HistoryDBPath   string `json:"history_db_path" env:"HISTORY_DB_PATH"`

	// Notification
	SlackWebhookURL string `json:"-" env:"SLACK_WEBHOOK_URL"`

	// OpenTelemetry configuration
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=leakprobe"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// Timeout returns the per-query timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GenerationParams returns the configured sampling defaults
func (c *Config) GenerationParams() GenerationParams {
	return GenerationParams{
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}
