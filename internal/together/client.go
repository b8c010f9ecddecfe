// Package together provides a thin client for the Together AI inference API.
package together

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/probeops/leakprobe/internal/types"
)

// ChatMessage represents a chat message with role and content
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completions request payload
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatUsage represents token usage information
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ModelInfo describes a model available to the account
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Client talks to the Together AI REST API. The credential is injected via
// the configuration and is never written to logs or error messages.
type Client struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	limiter       *rate.Limiter
	retryAttempts int
	retryDelay    time.Duration
}

// NewClient creates a Together API client from the application configuration
func NewClient(cfg *types.Config) *Client {
	perMinute := cfg.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}

	return &Client{
		apiKey:  cfg.TogetherAPIKey,
		baseURL: strings.TrimSuffix(cfg.TogetherBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		limiter:       rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// ChatCompletion sends a single-shot chat request and returns the generated
// text unmodified. Retries are limited to retryable failures (connectivity,
// throttling, upstream 5xx); everything else surfaces immediately.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		return "", &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: "model identifier cannot be empty",
		}
	}
	if len(req.Messages) == 0 {
		return "", &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: "messages cannot be empty",
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff between attempts
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctxError(ctx.Err())
			}
		}

		respBody, err := c.post(ctx, "/chat/completions", body)
		if err != nil {
			lastErr = err
			var pe *types.ProbeError
			if errors.As(err, &pe) && pe.IsRetryable() {
				continue
			}
			return "", err
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", &types.ProbeError{
				Type:    types.ErrorTypeService,
				Message: fmt.Sprintf("failed to parse chat response: %v", err),
				Cause:   err,
			}
		}
		if len(parsed.Choices) == 0 {
			return "", &types.ProbeError{
				Type:    types.ErrorTypeService,
				Message: "chat response contained no choices",
			}
		}

		return parsed.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

// ListModels returns the models available to the configured account
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	respBody, err := c.get(ctx, "/models")
	if err != nil {
		return nil, err
	}

	var models []ModelInfo
	if err := json.Unmarshal(respBody, &models); err != nil {
		return nil, &types.ProbeError{
			Type:    types.ErrorTypeService,
			Message: fmt.Sprintf("failed to parse models response: %v", err),
			Cause:   err,
		}
	}
	return models, nil
}

// ValidateConnection verifies that the endpoint is reachable and the
// credential is accepted, without issuing a completion.
func (c *Client) ValidateConnection(ctx context.Context) error {
	_, err := c.get(ctx, "/models")
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ctxError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.ProbeError{
			Type:    types.ErrorTypeNetwork,
			Message: fmt.Sprintf("request to %s failed: %v", path, err),
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ProbeError{
			Type:    types.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response from %s: %v", path, err),
			Cause:   err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyStatus maps a non-success HTTP response onto the error taxonomy
func classifyStatus(status int, body []byte) *types.ProbeError {
	message := upstreamMessage(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &types.ProbeError{
			Type:       types.ErrorTypeAuthentication,
			Message:    fmt.Sprintf("API key rejected: %s", message),
			StatusCode: status,
		}
	default:
		return &types.ProbeError{
			Type:       types.ErrorTypeService,
			Message:    message,
			StatusCode: status,
		}
	}
}

func upstreamMessage(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "upstream returned an empty error body"
	}
	// cut on a rune boundary so a multi-byte character is never split
	if runes := []rune(trimmed); len(runes) > 512 {
		trimmed = string(runes[:512])
	}
	return trimmed
}

func ctxError(err error) *types.ProbeError {
	return &types.ProbeError{
		Type:    types.ErrorTypeNetwork,
		Message: fmt.Sprintf("request aborted: %v", err),
		Cause:   err,
	}
}
