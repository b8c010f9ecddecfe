package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leakprobe",
	Short: "leakprobe - context leakage probing for hosted LLMs",
	Long: `leakprobe queries hosted LLMs with conversation transcripts injected as
context, then evaluates the responses for interdependent privacy violations:
information one person shared leaking into another person's session.

Configuration is loaded from environment variables (TOGETHER_API_KEY is
required); a .env file in the working directory is picked up automatically.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// missing .env is fine, the environment may already be populated
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(judgeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpServerCmd)
}
