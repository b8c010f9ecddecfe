package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	appconfig "github.com/probeops/leakprobe/internal/config"
	"github.com/probeops/leakprobe/internal/together"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the configured endpoint",
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVarP(&modelsJSON, "json", "j", false, "Output the model list as JSON")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	models, err := together.NewClient(cfg).ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if modelsJSON {
		return printJSON(cmd, models)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d models available:\n", len(models))
	for _, m := range models {
		if m.DisplayName != "" && m.DisplayName != m.ID {
			fmt.Fprintf(w, "  %s (%s)\n", m.ID, m.DisplayName)
			continue
		}
		fmt.Fprintf(w, "  %s\n", m.ID)
	}
	return nil
}
