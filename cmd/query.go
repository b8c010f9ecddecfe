package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/query"
	"github.com/probeops/leakprobe/internal/together"
	"github.com/probeops/leakprobe/internal/types"
)

var (
	queryModels      []string
	queryPrompt      string
	queryFiles       []string
	queryScenario    string
	queryMaxTokens   int
	queryTemperature float64
	queryTimeout     int
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query models with conversation files injected as context",
	Long: `
Query one or more hosted models with conversation transcripts injected as
context ahead of the prompt. Files are injected in the order given, each under
its own content marker.

Examples:
  # Single model, two transcripts
  leakprobe query -m deepseek-ai/DeepSeek-R1 -p "Summarize." -f alice.txt -f bob.txt

  # Compare several models on the same probe
  leakprobe query -m model-a -m model-b -p "What did the patient report?" -f visit.txt

  # Run a saved scenario
  leakprobe query -s scenarios/indirect-probe.yaml
`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryModels, "model", "m", nil, "Model identifier (repeatable; defaults to DEFAULT_MODEL)")
	queryCmd.Flags().StringVarP(&queryPrompt, "prompt", "p", "", "Probe prompt sent after the injected context")
	queryCmd.Flags().StringSliceVarP(&queryFiles, "file", "f", nil, "Conversation file to inject (repeatable, order preserved)")
	queryCmd.Flags().StringVarP(&queryScenario, "scenario", "s", "", "YAML scenario file providing models, prompt and files")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "Override max tokens for the response")
	queryCmd.Flags().Float64Var(&queryTemperature, "temperature", 0, "Override sampling temperature")
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 0, "Override per-query timeout in seconds")
	queryCmd.Flags().BoolVarP(&queryJSON, "json", "j", false, "Output results as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	inputs, err := resolveProbeInputs(queryScenario, queryModels, queryPrompt, queryFiles, cfg)
	if err != nil {
		return err
	}
	// flags beat the scenario, so overrides apply after the scenario merge
	applyQueryOverrides(cmd, cfg, inputs)
	cfg.MaxTokens = inputs.Gen.MaxTokens
	cfg.Temperature = inputs.Gen.Temperature

	ctx := cmd.Context()
	shutdown, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	runner := query.NewRunner(cfg, together.NewClient(cfg))

	if len(inputs.Models) == 1 {
		response, err := runner.QueryModelWithContext(ctx, inputs.Models[0], inputs.Prompt, inputs.Files)
		if err != nil {
			return err
		}
		if queryJSON {
			return printJSON(cmd, types.QueryResult{Model: inputs.Models[0], Response: response})
		}
		fmt.Fprintln(cmd.OutOrStdout(), response)
		return nil
	}

	results, err := runner.QueryModels(ctx, inputs.Models, inputs.Prompt, inputs.Files)
	if err != nil {
		return err
	}
	if queryJSON {
		return printJSON(cmd, results)
	}
	printQueryResults(cmd, results)
	return nil
}

func applyQueryOverrides(cmd *cobra.Command, cfg *appconfig.Config, inputs *probeInputs) {
	if cmd.Flags().Changed("max-tokens") && queryMaxTokens > 0 {
		inputs.Gen.MaxTokens = queryMaxTokens
	}
	if cmd.Flags().Changed("temperature") {
		inputs.Gen.Temperature = queryTemperature
	}
	if cmd.Flags().Changed("timeout") && queryTimeout > 0 {
		cfg.TimeoutSeconds = queryTimeout
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func printQueryResults(cmd *cobra.Command, results []types.QueryResult) {
	w := cmd.OutOrStdout()
	for i, result := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s (%v) ===\n", result.Model, result.Duration.Round(timePrecision))
		if result.Error != "" {
			fmt.Fprintf(w, "FAILED [%s]: %s\n", result.ErrorType, result.Error)
			continue
		}
		fmt.Fprintln(w, result.Response)
	}
}
