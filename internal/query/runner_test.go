package query

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probeops/leakprobe/internal/together"
	"github.com/probeops/leakprobe/internal/types"
)

type fakeChatClient struct {
	mu       sync.Mutex
	requests []together.ChatRequest
	respond  func(req together.ChatRequest) (string, error)
}

func (f *fakeChatClient) ChatCompletion(ctx context.Context, req together.ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return "ok", nil
}

func runnerConfig() *types.Config {
	return &types.Config{
		TogetherAPIKey: "test-key",
		MaxTokens:      1000,
		Temperature:    0.7,
		TimeoutSeconds: 5,
		Concurrency:    4,
	}
}

func TestQueryModelWithContext(t *testing.T) {
	t.Run("builds the documented request text from a single file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("Patient reports fatigue."), 0644))

		client := &fakeChatClient{respond: func(req together.ChatRequest) (string, error) {
			return "model output", nil
		}}
		runner := NewRunner(runnerConfig(), client)

		got, err := runner.QueryModelWithContext(context.Background(), "test-model", "Summarize.", []string{path})
		require.NoError(t, err)
		require.Equal(t, "model output", got)

		require.Len(t, client.requests, 1)
		req := client.requests[0]
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		require.Equal(t, "user", req.Messages[0].Role)
		require.Equal(t,
			"Context:\n=== FILE CONTENT ===\nPatient reports fatigue.\n\nQuestion: Summarize.",
			req.Messages[0].Content)
	})

	t.Run("zero files sends the prompt alone", func(t *testing.T) {
		client := &fakeChatClient{}
		runner := NewRunner(runnerConfig(), client)

		_, err := runner.QueryModelWithContext(context.Background(), "test-model", "Just the prompt.", nil)
		require.NoError(t, err)
		require.Equal(t, "Just the prompt.", client.requests[0].Messages[0].Content)
	})

	t.Run("missing file aborts before any network call", func(t *testing.T) {
		client := &fakeChatClient{}
		runner := NewRunner(runnerConfig(), client)

		_, err := runner.QueryModelWithContext(context.Background(), "test-model", "Summarize.", []string{"/nonexistent/path.txt"})
		require.Error(t, err)

		var pe *types.ProbeError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, types.ErrorTypeFileAccess, pe.Type)
		require.Equal(t, "/nonexistent/path.txt", pe.FilePath)
		require.Empty(t, client.requests, "no request may be issued when context loading fails")
	})

	t.Run("empty model is rejected", func(t *testing.T) {
		runner := NewRunner(runnerConfig(), &fakeChatClient{})
		_, err := runner.QueryModelWithContext(context.Background(), "", "prompt", nil)
		require.Error(t, err)
		require.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
	})
}

func TestQueryModels(t *testing.T) {
	t.Run("fans out and keeps result order aligned with input", func(t *testing.T) {
		client := &fakeChatClient{respond: func(req together.ChatRequest) (string, error) {
			return "response from " + req.Model, nil
		}}
		runner := NewRunner(runnerConfig(), client)

		models := []string{"model-a", "model-b", "model-c"}
		results, err := runner.QueryModels(context.Background(), models, "prompt", nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for i, model := range models {
			require.Equal(t, model, results[i].Model)
			require.Equal(t, "response from "+model, results[i].Response)
			require.Empty(t, results[i].Error)
		}
	})

	t.Run("one failing model does not cancel its siblings", func(t *testing.T) {
		client := &fakeChatClient{respond: func(req together.ChatRequest) (string, error) {
			if req.Model == "broken-model" {
				return "", &types.ProbeError{
					Type:       types.ErrorTypeService,
					Message:    "upstream exploded",
					StatusCode: 500,
				}
			}
			return "fine", nil
		}}
		runner := NewRunner(runnerConfig(), client)

		results, err := runner.QueryModels(context.Background(), []string{"good-model", "broken-model"}, "prompt", nil)
		require.NoError(t, err)

		require.Equal(t, "fine", results[0].Response)
		require.Empty(t, results[0].Error)

		require.Empty(t, results[1].Response)
		require.Contains(t, results[1].Error, "upstream exploded")
		require.Equal(t, types.ErrorTypeService, results[1].ErrorType)
	})

	t.Run("records per-model durations", func(t *testing.T) {
		client := &fakeChatClient{respond: func(req together.ChatRequest) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "done", nil
		}}
		runner := NewRunner(runnerConfig(), client)

		results, err := runner.QueryModels(context.Background(), []string{"model-a"}, "prompt", nil)
		require.NoError(t, err)
		require.GreaterOrEqual(t, results[0].Duration, 5*time.Millisecond)
	})

	t.Run("unreadable context file fails the whole run", func(t *testing.T) {
		client := &fakeChatClient{}
		runner := NewRunner(runnerConfig(), client)

		_, err := runner.QueryModels(context.Background(), []string{"model-a", "model-b"}, "prompt", []string{"/nope.txt"})
		require.Error(t, err)
		require.Equal(t, types.ErrorTypeFileAccess, types.ErrorTypeOf(err))
		require.Empty(t, client.requests)
	})
}
