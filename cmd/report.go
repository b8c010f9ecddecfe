package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/conversation"
	"github.com/probeops/leakprobe/internal/judge"
	"github.com/probeops/leakprobe/internal/notify"
	"github.com/probeops/leakprobe/internal/query"
	"github.com/probeops/leakprobe/internal/report"
	"github.com/probeops/leakprobe/internal/runstore"
	"github.com/probeops/leakprobe/internal/together"
	"github.com/probeops/leakprobe/internal/types"
)

var (
	reportModels   []string
	reportPrompt   string
	reportFiles    []string
	reportScenario string
	reportOutput   string
	reportSkipJudge bool
	reportNoHistory bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a probe across models, judge the responses and write an HTML report",
	Long: `
Run the full probe pipeline: query every model with the conversation files
injected as context, score each response with the judge model, write an HTML
comparison report and record the run in local history. A Slack notification is
sent when SLACK_WEBHOOK_URL is configured.

Examples:
  leakprobe report -m model-a -m model-b -p "Summarize." -f alice.txt -f bob.txt
  leakprobe report -s scenarios/composite.yaml -o reports/composite.html
`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVarP(&reportModels, "model", "m", nil, "Model identifier (repeatable; defaults to DEFAULT_MODEL)")
	reportCmd.Flags().StringVarP(&reportPrompt, "prompt", "p", "", "Probe prompt sent after the injected context")
	reportCmd.Flags().StringSliceVarP(&reportFiles, "file", "f", nil, "Conversation file to inject (repeatable, order preserved)")
	reportCmd.Flags().StringVarP(&reportScenario, "scenario", "s", "", "YAML scenario file providing models, prompt and files")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Report output path (defaults to REPORT_OUTPUT_DIR with a timestamped name)")
	reportCmd.Flags().BoolVar(&reportSkipJudge, "skip-judge", false, "Skip judge evaluation")
	reportCmd.Flags().BoolVar(&reportNoHistory, "no-history", false, "Do not record the run in local history")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	inputs, err := resolveProbeInputs(reportScenario, reportModels, reportPrompt, reportFiles, cfg)
	if err != nil {
		return err
	}
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

	// load once so the report and the judge see exactly what the models saw
	files, err := conversation.LoadFiles(inputs.Files)
	if err != nil {
		return err
	}

	client := together.NewClient(cfg)
	runner := query.NewRunner(cfg, client)

	log.Printf("querying %d model(s)", len(inputs.Models))
	results, err := runner.QueryModels(ctx, inputs.Models, inputs.Prompt, inputs.Files)
	if err != nil {
		return err
	}

	// keyed by result index so a model listed twice is judged twice
	judgments := make(map[int]*types.Judgment)
	if !reportSkipJudge {
		j := judge.New(client, cfg.JudgeModel, cfg.JudgeMaxTokens)
		judgeContext := judgeContextFromFiles(files)
		for i, result := range results {
			if result.Error != "" {
				continue
			}
			judgment, err := j.Evaluate(ctx, result.Response, judgeContext)
			if err != nil {
				log.Printf("judge evaluation failed for %s: %v", result.Model, err)
				continue
			}
			judgments[i] = judgment
		}
	}

	outputPath := reportOutput
	if outputPath == "" {
		outputPath = filepath.Join(cfg.ReportOutputDir, fmt.Sprintf("leakprobe_%s.html", time.Now().Format("20060102_150405")))
	}

	reportPath, err := report.Generate(outputPath, report.Params{
		Prompt:    inputs.Prompt,
		Files:     files,
		Results:   results,
		Judgments: judgments,
		Gen:       inputs.Gen,
	})
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)

	if !reportNoHistory {
		if err := recordRuns(ctx, cfg, inputs, results, judgments, reportPath); err != nil {
			log.Printf("failed to record run history: %v", err)
		}
	}

	if notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL); notifier != nil {
		if err := notifier.NotifyRun(ctx, notify.RunSummary{
			Prompt:     inputs.Prompt,
			Results:    results,
			Judgments:  judgments,
			ReportPath: reportPath,
		}); err != nil {
			log.Printf("slack notification failed: %v", err)
		}
	}

	return nil
}

func judgeContextFromFiles(files []conversation.File) string {
	var blocks []string
	for _, f := range files {
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("%s\n%s", conversation.FileContentHeader, f.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func recordRuns(ctx context.Context, cfg *appconfig.Config, inputs *probeInputs, results []types.QueryResult, judgments map[int]*types.Judgment, reportPath string) error {
	store, err := runstore.NewWithPath(cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close history store: %v", err)
		}
	}()

	for i, result := range results {
		record := &runstore.RunRecord{
			Model:             result.Model,
			Prompt:            inputs.Prompt,
			ConversationFiles: inputs.Files,
			Response:          result.Response,
			ErrorType:         string(result.ErrorType),
			ReportPath:        reportPath,
		}
		if judgment, ok := judgments[i]; ok {
			score, confidence := judgment.Score, judgment.Confidence
			record.Score = &score
			record.Confidence = &confidence
		}
		if _, err := store.SaveRun(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
