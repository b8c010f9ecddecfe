package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/types"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		DefaultModel: "deepseek-ai/DeepSeek-R1",
		MaxTokens:    1000,
		Temperature:  0.7,
	}
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestResolveProbeInputs(t *testing.T) {
	t.Run("flags alone", func(t *testing.T) {
		inputs, err := resolveProbeInputs("", []string{"model-a"}, "Summarize.", []string{"a.txt"}, testConfig())
		require.NoError(t, err)
		require.Equal(t, []string{"model-a"}, inputs.Models)
		require.Equal(t, "Summarize.", inputs.Prompt)
		require.Equal(t, []string{"a.txt"}, inputs.Files)
		require.Equal(t, 1000, inputs.Gen.MaxTokens)
	})

	t.Run("default model fills in when none given", func(t *testing.T) {
		inputs, err := resolveProbeInputs("", nil, "Summarize.", nil, testConfig())
		require.NoError(t, err)
		require.Equal(t, []string{"deepseek-ai/DeepSeek-R1"}, inputs.Models)
	})

	t.Run("missing prompt is a validation error", func(t *testing.T) {
		_, err := resolveProbeInputs("", []string{"model-a"}, "", nil, testConfig())
		require.Error(t, err)
		require.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
	})

	t.Run("scenario supplies missing inputs", func(t *testing.T) {
		path := writeScenario(t, `
name: medical-indirect
strategy: indirect
models:
  - scenario-model
prompt: "What did the patient report?"
conversation_files:
  - visit.txt
generation:
  max_tokens: 256
  temperature: 0.2
`)

		inputs, err := resolveProbeInputs(path, nil, "", nil, testConfig())
		require.NoError(t, err)
		require.Equal(t, []string{"scenario-model"}, inputs.Models)
		require.Equal(t, "What did the patient report?", inputs.Prompt)
		require.Len(t, inputs.Files, 1)
		require.True(t, strings.HasSuffix(inputs.Files[0], "visit.txt"))
		require.Equal(t, 256, inputs.Gen.MaxTokens)
		require.InDelta(t, 0.2, inputs.Gen.Temperature, 1e-9)
	})

	t.Run("partial generation block keeps configured token budget", func(t *testing.T) {
		path := writeScenario(t, `
name: temp-only
strategy: direct
models:
  - scenario-model
prompt: "scenario prompt"
generation:
  temperature: 0.2
`)

		inputs, err := resolveProbeInputs(path, nil, "", nil, testConfig())
		require.NoError(t, err)
		require.Equal(t, 1000, inputs.Gen.MaxTokens)
		require.InDelta(t, 0.2, inputs.Gen.Temperature, 1e-9)
	})

	t.Run("flags override the scenario", func(t *testing.T) {
		path := writeScenario(t, `
name: medical-indirect
strategy: indirect
models:
  - scenario-model
prompt: "scenario prompt"
`)

		inputs, err := resolveProbeInputs(path, []string{"flag-model"}, "flag prompt", []string{"flag.txt"}, testConfig())
		require.NoError(t, err)
		require.Equal(t, []string{"flag-model"}, inputs.Models)
		require.Equal(t, "flag prompt", inputs.Prompt)
		require.Equal(t, []string{"flag.txt"}, inputs.Files)
	})

	t.Run("unreadable scenario fails", func(t *testing.T) {
		_, err := resolveProbeInputs("/nonexistent/scenario.yaml", nil, "", nil, testConfig())
		require.Error(t, err)
	})
}

func TestTruncatePrompt(t *testing.T) {
	require.Equal(t, "short", truncatePrompt("short", 60))
	require.Equal(t, "line one line two", truncatePrompt("line one\nline two", 60))

	long := strings.Repeat("x", 80)
	got := truncatePrompt(long, 60)
	require.Len(t, got, 63)
	require.True(t, strings.HasSuffix(got, "..."))

	multi := strings.Repeat("患者", 50)
	got = truncatePrompt(multi, 60)
	require.Equal(t, 63, len([]rune(got)))
	require.True(t, utf8.ValidString(got))
}
