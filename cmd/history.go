package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/runstore"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent probe runs from local history",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show")
	historyCmd.Flags().BoolVarP(&historyJSON, "json", "j", false, "Output run history as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := runstore.NewWithPath(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if historyJSON {
		return printJSON(cmd, runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No recorded runs.")
		return nil
	}

	for _, run := range runs {
		status := "ok"
		if !run.Succeeded() {
			status = "failed (" + run.ErrorType + ")"
		}
		score := "-"
		if run.Score != nil {
			score = fmt.Sprintf("%.2f", *run.Score)
		}
		fmt.Fprintf(w, "%s  %s  %-8s score=%s  %s\n",
			run.CreatedAt.Format("2006-01-02 15:04"),
			run.ID,
			status,
			score,
			truncatePrompt(run.Prompt, 60),
		)
	}
	return nil
}

// truncatePrompt flattens and shortens a prompt to n runes for the run listing
func truncatePrompt(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
