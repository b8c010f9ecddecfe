package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/conversation"
	"github.com/probeops/leakprobe/internal/judge"
	"github.com/probeops/leakprobe/internal/together"
)

var (
	judgeResponseFile string
	judgeContextFiles []string
	judgeModelFlag    string
	judgeJSON         bool
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Score a model response for interdependent privacy violations",
	Long: `
Evaluate a model response with the judge model. The response is read from
--response-file, or from stdin when the flag is omitted. Conversation files
passed with --context are injected so the judge can compare the response
against what each participant actually shared.

Examples:
  leakprobe judge --response-file out.txt --context alice.txt --context bob.txt
  cat out.txt | leakprobe judge --context alice.txt --json
`,
	RunE: runJudge,
}

func init() {
	judgeCmd.Flags().StringVar(&judgeResponseFile, "response-file", "", "File containing the model response (stdin when omitted)")
	judgeCmd.Flags().StringSliceVar(&judgeContextFiles, "context", nil, "Conversation file the response was produced against (repeatable)")
	judgeCmd.Flags().StringVar(&judgeModelFlag, "judge-model", "", "Override the judge model")
	judgeCmd.Flags().BoolVarP(&judgeJSON, "json", "j", false, "Output the judgment as JSON")
}

func runJudge(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if judgeModelFlag != "" {
		cfg.JudgeModel = judgeModelFlag
	}

	response, err := readJudgeResponse(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var judgeContext string
	if len(judgeContextFiles) > 0 {
		files, err := conversation.LoadFiles(judgeContextFiles)
		if err != nil {
			return err
		}
		var blocks []string
		for _, f := range files {
			blocks = append(blocks, fmt.Sprintf("%s\n%s", conversation.FileContentHeader, f.Content))
		}
		judgeContext = strings.Join(blocks, "\n\n")
	}

	j := judge.New(together.NewClient(cfg), cfg.JudgeModel, cfg.JudgeMaxTokens)
	judgment, err := j.Evaluate(cmd.Context(), response, judgeContext)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if judgeJSON {
		return printJSON(cmd, judgment)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Score:      %.2f/1.0\n", judgment.Score)
	fmt.Fprintf(w, "Confidence: %.2f\n", judgment.Confidence)
	fmt.Fprintf(w, "Judge:      %s\n", judgment.JudgeModel)
	fmt.Fprintf(w, "Reasoning:  %s\n", judgment.Reasoning)
	if len(judgment.ViolationsFound) > 0 {
		fmt.Fprintln(w, "Violations:")
		for _, v := range judgment.ViolationsFound {
			fmt.Fprintf(w, "  - %s\n", v)
		}
	}
	return nil
}

func readJudgeResponse(stdin io.Reader) (string, error) {
	if judgeResponseFile != "" {
		data, err := os.ReadFile(judgeResponseFile)
		if err != nil {
			return "", fmt.Errorf("failed to read response file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read response from stdin: %w", err)
	}
	response := strings.TrimSpace(string(data))
	if response == "" {
		return "", fmt.Errorf("no response provided, pass --response-file or pipe the response on stdin")
	}
	return response, nil
}
