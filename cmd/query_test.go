package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/probeops/leakprobe/internal/types"
)

func TestPrintQueryResults(t *testing.T) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)

	printQueryResults(c, []types.QueryResult{
		{Model: "model-a", Response: "all good", Duration: 1200 * time.Millisecond},
		{Model: "model-b", Error: "[authentication] invalid API key", ErrorType: types.ErrorTypeAuthentication},
	})

	out := buf.String()
	require.Contains(t, out, "=== model-a (1.2s) ===")
	require.Contains(t, out, "all good")
	require.Contains(t, out, "=== model-b")
	require.Contains(t, out, "FAILED [authentication]: [authentication] invalid API key")
}

func TestApplyQueryOverrides(t *testing.T) {
	t.Run("generation flags beat scenario values", func(t *testing.T) {
		require.NoError(t, queryCmd.Flags().Set("max-tokens", "500"))
		require.NoError(t, queryCmd.Flags().Set("temperature", "0.9"))
		t.Cleanup(func() {
			queryCmd.Flags().Lookup("max-tokens").Changed = false
			queryCmd.Flags().Lookup("temperature").Changed = false
		})

		cfg := testConfig()
		inputs := &probeInputs{Gen: types.GenerationParams{MaxTokens: 256, Temperature: 0.2}}
		applyQueryOverrides(queryCmd, cfg, inputs)

		require.Equal(t, 500, inputs.Gen.MaxTokens)
		require.InDelta(t, 0.9, inputs.Gen.Temperature, 1e-9)
	})

	t.Run("untouched flags leave resolved values alone", func(t *testing.T) {
		cfg := testConfig()
		inputs := &probeInputs{Gen: types.GenerationParams{MaxTokens: 256, Temperature: 0.2}}
		applyQueryOverrides(queryCmd, cfg, inputs)

		require.Equal(t, 256, inputs.Gen.MaxTokens)
		require.InDelta(t, 0.2, inputs.Gen.Temperature, 1e-9)
	})
}

func TestReadJudgeResponse(t *testing.T) {
	t.Run("reads from stdin when no file given", func(t *testing.T) {
		judgeResponseFile = ""
		got, err := readJudgeResponse(strings.NewReader("  model output  \n"))
		require.NoError(t, err)
		require.Equal(t, "model output", got)
	})

	t.Run("empty stdin fails", func(t *testing.T) {
		judgeResponseFile = ""
		_, err := readJudgeResponse(strings.NewReader(""))
		require.Error(t, err)
	})
}
